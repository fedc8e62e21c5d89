package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kdomanski/iso9660"

	"github.com/jbweber/ephemvm/internal/logger"
)

// ISOExtractor reads the ISO9660 filesystem in-process and needs no root.
type ISOExtractor struct{}

// NewISOExtractor creates an in-process extractor.
func NewISOExtractor() *ISOExtractor {
	return &ISOExtractor{}
}

// Extract copies the boot files out of isoPath into dir.
func (e *ISOExtractor) Extract(_ context.Context, dir, isoPath string) (Boot, error) {
	f, err := os.Open(isoPath)
	if err != nil {
		return Boot{}, fmt.Errorf("failed to open ISO %s: %w", isoPath, err)
	}
	defer func() { _ = f.Close() }()

	img, err := iso9660.OpenImage(f)
	if err != nil {
		return Boot{}, fmt.Errorf("failed to read ISO %s: %w", isoPath, err)
	}

	boot := bootPaths(dir)
	for src, dst := range map[string]string{KernelPath: boot.Kernel, InitrdPath: boot.Initrd} {
		file, err := findFile(img, src)
		if err != nil {
			return Boot{}, fmt.Errorf("failed to locate %s in %s: %w", src, isoPath, err)
		}
		if err := copyFile(dst, file.Reader()); err != nil {
			return Boot{}, err
		}
	}

	logger.Logger().Infof("Extracted kernel %s and initrd %s", boot.Kernel, boot.Initrd)
	return boot, nil
}

// findFile walks slash-separated path from the image root.
func findFile(img *iso9660.Image, path string) (*iso9660.File, error) {
	current, err := img.RootDir()
	if err != nil {
		return nil, err
	}

	for _, part := range strings.Split(path, "/") {
		children, err := current.GetChildren()
		if err != nil {
			return nil, err
		}

		var next *iso9660.File
		for _, child := range children {
			if matchName(child.Name(), part) {
				next = child
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("%s not found", part)
		}
		current = next
	}

	if current.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return current, nil
}

// matchName compares an ISO9660 record name with want. Plain ISO9660 names
// are upper case and may carry a ";1" version suffix.
func matchName(name, want string) bool {
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, ".")
	return strings.EqualFold(name, want)
}
