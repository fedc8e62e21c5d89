// Package disk allocates the sparse raw disk the installer writes to.
package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/jbweber/ephemvm/internal/logger"
	"github.com/jbweber/ephemvm/internal/shell"
)

// NOTE: The disk is created with truncate rather than qemu-img so that the
// image stays a plain sparse raw file QEMU can open with format=raw.

const (
	// RootImageName is the disk file name inside the working directory
	RootImageName = "root.img"

	// DirPermissions are the permissions for the working directory
	DirPermissions = 0755
)

// Allocator creates raw disk images.
type Allocator struct {
	runner shell.Runner
}

// NewAllocator creates an allocator that runs truncate through runner.
func NewAllocator(runner shell.Runner) *Allocator {
	return &Allocator{runner: runner}
}

// Allocate returns <dir>/root.img, creating it with the given logical size
// when it does not exist yet. An existing image is reused as-is without
// resizing.
func (a *Allocator) Allocate(ctx context.Context, dir, size string) (string, error) {
	if _, err := ParseSize(size); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return "", fmt.Errorf("failed to create disk directory %s: %w", dir, err)
	}

	diskPath := filepath.Join(dir, RootImageName)

	info, err := os.Stat(diskPath)
	switch {
	case err == nil && info.Mode().IsRegular():
		logger.Logger().Infof("Reusing existing disk %s", diskPath)
		return diskPath, nil
	case err == nil:
		return "", fmt.Errorf("disk path %s exists and is not a regular file", diskPath)
	case !os.IsNotExist(err):
		return "", fmt.Errorf("failed to check disk %s: %w", diskPath, err)
	}

	logger.Logger().Infof("Creating %s raw disk %s", size, diskPath)
	if _, err := a.runner.Run(ctx, "truncate", "-s", size, diskPath); err != nil {
		return "", fmt.Errorf("failed to create disk %s: %w", diskPath, err)
	}

	return diskPath, nil
}

// ParseSize converts a size such as "20G" or "512M" into bytes. Suffixes are
// binary multiples (K=1024) and case-insensitive, matching truncate and qemu.
func ParseSize(size string) (uint64, error) {
	s := strings.TrimSpace(size)
	if s == "" {
		return 0, fmt.Errorf("size cannot be empty")
	}

	multiplier := uint64(1)
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1 << 10
	case "M":
		multiplier = 1 << 20
	case "G":
		multiplier = 1 << 30
	case "T":
		multiplier = 1 << 40
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: must be a number with an optional K/M/G/T suffix", size)
	}
	if n > (^uint64(0))/multiplier {
		return 0, fmt.Errorf("invalid size %q: overflows", size)
	}

	return n * multiplier, nil
}

// FreeBytes reports the bytes available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("failed to get filesystem stats for %s: %w", path, err)
	}

	return stat.Bavail * uint64(stat.Bsize), nil
}

// CheckDiskSpace returns an error when the filesystem holding dir has less
// free space than the logical size of the disk.
func CheckDiskSpace(dir, size string) error {
	needed, err := ParseSize(size)
	if err != nil {
		return err
	}

	available, err := FreeBytes(dir)
	if err != nil {
		return err
	}

	if needed > available {
		const gib = 1024 * 1024 * 1024
		return fmt.Errorf("insufficient disk space: need %dGB, have %dGB available", needed/gib, available/gib)
	}

	return nil
}
