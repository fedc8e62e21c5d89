package session

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jbweber/ephemvm/internal/cloudinit"
	"github.com/jbweber/ephemvm/internal/config"
	"github.com/jbweber/ephemvm/internal/disk"
	"github.com/jbweber/ephemvm/internal/extract"
	"github.com/jbweber/ephemvm/internal/logger"
	"github.com/jbweber/ephemvm/internal/qemu"
	"github.com/jbweber/ephemvm/internal/release"
	"github.com/jbweber/ephemvm/internal/shell"
	"github.com/jbweber/ephemvm/internal/status"
)

// tempPattern names the per-session working directory.
const tempPattern = "ephemvm-"

// deps carries the injected components of a session.
type deps struct {
	fetcher  isoFetcher
	seeds    seedBuilder
	disks    diskAllocator
	vmm      vmLauncher
	tempRoot string // parent of the working directory; "" means os.TempDir()
}

// Run executes a full session described by cfg and returns its final status.
//
// See the package documentation for the workflow.
func Run(ctx context.Context, cfg *config.Config) (*status.Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := checkTools(requiredTools(cfg), shell.IsCommandExist); err != nil {
		return nil, err
	}

	tools := shell.NewExecRunner()

	seeds, err := cloudinit.NewBuilder(cfg.VMM.SeedMethod, tools)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.New(cfg.VMM.ExtractMethod, tools)
	if err != nil {
		return nil, err
	}

	fetcher := release.NewFetcher(cfg.CacheRoot,
		release.WithMirror(cfg.Mirror),
		release.WithHTTPClient(release.NewSecureHTTPClient()),
		release.WithProgressOutput(os.Stderr),
	)

	launcher := &qemu.Launcher{
		Binary:    cfg.VMM.Binary,
		SSHPort:   cfg.SSHPort,
		Runner:    &shell.ExecRunner{Passthrough: os.Stderr},
		Extractor: extractor,
	}

	return runWithDeps(ctx, cfg, deps{
		fetcher: fetcher,
		seeds:   seeds,
		disks:   disk.NewAllocator(tools),
		vmm:     launcher,
	})
}

// requiredTools lists the host executables a session with cfg invokes.
func requiredTools(cfg *config.Config) []string {
	tools := []string{"truncate", cfg.VMM.Binary}
	if cfg.VMM.SeedMethod == config.SeedMethodLocalDS {
		tools = append(tools, "cloud-localds")
	}
	if cfg.VMM.ExtractMethod == config.ExtractMethodMount && cfg.Install.Cmdline() != "" {
		tools = append(tools, "mount", "umount")
	}
	return tools
}

// checkTools fails with every missing tool named, before any work starts.
func checkTools(tools []string, exists func(string) bool) error {
	var missing []string
	for _, tool := range tools {
		if !exists(tool) {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required tools not found in PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}

// runWithDeps runs a session with injected dependencies.
// This allows for testing by accepting interfaces instead of concrete types.
func runWithDeps(ctx context.Context, cfg *config.Config, d deps) (*status.Tracker, error) {
	log := logger.Logger()
	tracker := status.NewTracker()

	id, err := cfg.Release.Identity()
	if err != nil {
		return tracker, fmt.Errorf("invalid release: %w", err)
	}

	workDir, err := os.MkdirTemp(d.tempRoot, tempPattern)
	if err != nil {
		return tracker, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warnf("Warning: failed to remove working directory %s: %v", workDir, err)
		}
	}()
	log.Infof("Working directory: %s", workDir)

	// Step 1: Seed image
	log.Infof("Generating cloud-init seed...")
	seed, err := cloudinit.NewSeed(&cfg.CloudInit, true)
	if err != nil {
		status.MarkFailed(tracker, status.ConditionSeedReady, err)
		return tracker, fmt.Errorf("failed to generate seed: %w", err)
	}
	seedPath, err := d.seeds.Build(ctx, workDir, seed)
	if err != nil {
		status.MarkFailed(tracker, status.ConditionSeedReady, err)
		return tracker, fmt.Errorf("failed to build seed image: %w", err)
	}
	status.MarkSeedReady(tracker, seedPath)

	// Step 2: Root disk
	if err := disk.CheckDiskSpace(workDir, cfg.DiskSize); err != nil {
		// The image is sparse, so a small filesystem only fails once the guest fills it.
		log.Warnf("Warning: %v", err)
	}
	diskPath, err := d.disks.Allocate(ctx, workDir, cfg.DiskSize)
	if err != nil {
		status.MarkFailed(tracker, status.ConditionDiskReady, err)
		return tracker, fmt.Errorf("failed to allocate disk: %w", err)
	}
	status.MarkDiskReady(tracker, diskPath)

	// Step 3: Installer ISO
	log.Infof("Fetching %s...", id)
	isoPath, err := d.fetcher.Fetch(ctx, id)
	if err != nil {
		status.MarkFailed(tracker, status.ConditionISOReady, err)
		return tracker, fmt.Errorf("failed to fetch ISO: %w", err)
	}
	if err := release.DetectISO(isoPath); err != nil {
		// The manifest check cannot tell an error page from an image.
		log.Warnf("Warning: cached ISO %s looks invalid: %v", isoPath, err)
	}
	status.MarkISOReady(tracker, isoPath)

	var options []qemu.Option
	if cfg.VMM.EnableKVM {
		options = append(options, qemu.EnableKVM{})
	}

	// Step 4: Install
	installSpec := qemu.Spec{
		RAMSize:       cfg.RAMSize,
		DiskPath:      diskPath,
		ISOPath:       isoPath,
		KernelCmdline: cfg.Install.Cmdline(),
		Options:       options,
	}
	if cfg.Install.ShouldAttachSeed() {
		installSpec.SeedPath = seedPath
	}

	if err := status.TransitionToInstalling(tracker); err != nil {
		return tracker, err
	}
	log.Infof("Ephemeral boot: ssh %s@localhost -p %d", cfg.CloudInit.User, cfg.SSHPort)
	if err := d.vmm.Launch(ctx, workDir, installSpec); err != nil {
		status.MarkFailed(tracker, status.ConditionInstalled, err)
		return tracker, fmt.Errorf("install boot failed: %w", err)
	}

	// Step 5: First boot
	if err := status.TransitionToFirstBoot(tracker); err != nil {
		return tracker, err
	}
	log.Infof("First boot: ssh ubuntu@localhost -p %d", cfg.SSHPort)
	firstBootSpec := qemu.Spec{
		RAMSize:  cfg.RAMSize,
		DiskPath: diskPath,
		Options:  append(append([]qemu.Option{}, options...), qemu.Daemonize{}),
	}
	if err := d.vmm.Launch(ctx, workDir, firstBootSpec); err != nil {
		status.MarkFailed(tracker, status.ConditionBooted, err)
		return tracker, fmt.Errorf("first boot failed: %w", err)
	}

	if err := status.TransitionToDone(tracker); err != nil {
		return tracker, err
	}

	log.Infof("Session complete, working directory %s", workDir)
	return tracker, nil
}
