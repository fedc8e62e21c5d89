package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jbweber/ephemvm/internal/logger"
	"github.com/jbweber/ephemvm/internal/shell"
)

// MountDirName is the loop mount point created inside the working directory.
const MountDirName = "mnt"

// MountExtractor loop-mounts the ISO and copies the files out. It needs
// privileges to run mount and umount.
type MountExtractor struct {
	runner shell.Runner
}

// NewMountExtractor creates an extractor that mounts through runner.
func NewMountExtractor(runner shell.Runner) *MountExtractor {
	return &MountExtractor{runner: runner}
}

// Extract mounts isoPath read-only at <dir>/mnt, copies the boot files into
// dir and unmounts. A failed mount or umount is an error.
func (m *MountExtractor) Extract(ctx context.Context, dir, isoPath string) (boot Boot, err error) {
	mountPoint := filepath.Join(dir, MountDirName)
	if err := os.MkdirAll(mountPoint, 0755); err != nil {
		return Boot{}, fmt.Errorf("failed to create mount point %s: %w", mountPoint, err)
	}

	log := logger.Logger()
	log.Infof("Mounting %s at %s", isoPath, mountPoint)
	if _, err := m.runner.Run(ctx, "mount", "-o", "loop,ro", isoPath, mountPoint); err != nil {
		return Boot{}, fmt.Errorf("failed to mount %s: %w", isoPath, err)
	}
	defer func() {
		// Unmount with a fresh context so cancellation still releases the loop device.
		if _, umountErr := m.runner.Run(context.WithoutCancel(ctx), "umount", mountPoint); umountErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to unmount %s: %w", mountPoint, umountErr))
		}
	}()

	boot = bootPaths(dir)
	for src, dst := range map[string]string{KernelPath: boot.Kernel, InitrdPath: boot.Initrd} {
		if err := copyFromMount(dst, filepath.Join(mountPoint, src)); err != nil {
			return Boot{}, err
		}
	}

	log.Infof("Extracted kernel %s and initrd %s", boot.Kernel, boot.Initrd)
	return boot, nil
}

func copyFromMount(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	return copyFile(dst, in)
}
