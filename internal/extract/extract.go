// Package extract copies the installer kernel and initrd out of an ISO so
// they can be booted directly with a custom kernel command line.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jbweber/ephemvm/internal/config"
	"github.com/jbweber/ephemvm/internal/shell"
)

// Locations of the boot files inside an Ubuntu installer ISO.
const (
	KernelPath = "casper/vmlinuz"
	InitrdPath = "casper/initrd"
)

// Boot holds host paths of the extracted boot files.
type Boot struct {
	Kernel string
	Initrd string
}

// Extractor copies casper/vmlinuz and casper/initrd from isoPath into dir.
type Extractor interface {
	Extract(ctx context.Context, dir, isoPath string) (Boot, error)
}

// New returns the extractor selected by method
// (config.ExtractMethodMount or config.ExtractMethodISO).
func New(method string, runner shell.Runner) (Extractor, error) {
	switch method {
	case config.ExtractMethodMount:
		return NewMountExtractor(runner), nil
	case config.ExtractMethodISO:
		return NewISOExtractor(), nil
	default:
		return nil, fmt.Errorf("unsupported extract method %q", method)
	}
}

func bootPaths(dir string) Boot {
	return Boot{
		Kernel: filepath.Join(dir, filepath.Base(KernelPath)),
		Initrd: filepath.Join(dir, filepath.Base(InitrdPath)),
	}
}

// copyFile writes src to dst, replacing dst.
func copyFile(dst string, src io.Reader) (err error) {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", dst, closeErr)
		}
	}()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
