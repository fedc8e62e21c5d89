// Package qemu builds QEMU/KVM command lines and runs them in the foreground.
package qemu

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jbweber/ephemvm/internal/extract"
	"github.com/jbweber/ephemvm/internal/logger"
	"github.com/jbweber/ephemvm/internal/shell"
)

// Spec describes one VMM invocation.
type Spec struct {
	RAMSize       string
	DiskPath      string
	ISOPath       string // attached as -cdrom when set
	SeedPath      string // attached as an IDE drive when set
	KernelCmdline string // requires ISOPath; boots the ISO's kernel directly
	Options       []Option
}

// Launcher runs the VMM binary.
type Launcher struct {
	Binary    string
	SSHPort   int
	Runner    shell.Runner
	Extractor extract.Extractor
}

// Launch runs the VMM described by spec and blocks until it exits, or until
// it forks when Daemonize is set. Boot files for a kernel command line are
// extracted into workDir first.
func (l *Launcher) Launch(ctx context.Context, workDir string, spec Spec) error {
	if spec.KernelCmdline != "" && spec.ISOPath == "" {
		return fmt.Errorf("kernel command line requires an installer ISO")
	}

	var boot *extract.Boot
	if spec.KernelCmdline != "" {
		if l.Extractor == nil {
			return fmt.Errorf("kernel command line requires an extractor")
		}
		b, err := l.Extractor.Extract(ctx, workDir, spec.ISOPath)
		if err != nil {
			return fmt.Errorf("failed to extract boot files: %w", err)
		}
		boot = &b
	}

	args, err := BuildArgs(l.SSHPort, spec, boot)
	if err != nil {
		return err
	}

	logger.Logger().Infof("Launching %s %v", l.Binary, args)
	if _, err := l.Runner.Run(ctx, l.Binary, args...); err != nil {
		return fmt.Errorf("failed to run %s: %w", l.Binary, err)
	}

	return nil
}

// BuildArgs returns the VMM arguments for spec. boot must be set exactly
// when spec has a kernel command line.
func BuildArgs(sshPort int, spec Spec, boot *extract.Boot) ([]string, error) {
	if spec.RAMSize == "" {
		return nil, fmt.Errorf("RAM size is required")
	}
	if spec.DiskPath == "" {
		return nil, fmt.Errorf("disk path is required")
	}
	if sshPort <= 0 || sshPort > 65535 {
		return nil, fmt.Errorf("invalid SSH port %d", sshPort)
	}
	if spec.KernelCmdline != "" && spec.ISOPath == "" {
		return nil, fmt.Errorf("kernel command line requires an installer ISO")
	}
	if (spec.KernelCmdline != "") != (boot != nil) {
		return nil, fmt.Errorf("boot files must be provided exactly when a kernel command line is set")
	}

	args := []string{
		"-no-reboot",
		"-m", spec.RAMSize,
		"-drive", fmt.Sprintf("file=%s,format=raw,cache=none,if=virtio", spec.DiskPath),
		"-net", "nic",
		"-net", "user,hostfwd=tcp::" + strconv.Itoa(sshPort) + "-:22",
	}

	if spec.ISOPath != "" {
		args = append(args, "-cdrom", spec.ISOPath)
	}
	if spec.SeedPath != "" {
		args = append(args, "-drive", fmt.Sprintf("file=%s,format=raw,if=ide", spec.SeedPath))
	}
	if boot != nil {
		args = append(args,
			"-kernel", boot.Kernel,
			"-initrd", boot.Initrd,
			"-append", spec.KernelCmdline,
		)
	}

	for _, opt := range spec.Options {
		args = append(args, opt.Args()...)
	}

	return args, nil
}
