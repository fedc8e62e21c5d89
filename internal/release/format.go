package release

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// An ISO9660 image starts its volume descriptor set at sector 16. Every
// descriptor carries the standard identifier "CD001" at byte 1.
// Reference: ECMA-119, Section 8.1
var (
	iso9660Magic       = []byte("CD001")
	iso9660MagicOffset = int64(16*2048 + 1)
)

// DetectISO checks that the file at path is an ISO9660 image by reading the
// first volume descriptor. Mirrors sometimes serve HTML error pages with a
// success status, which this catches.
func DetectISO(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(iso9660MagicOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to volume descriptor: %w", err)
	}

	magic := make([]byte, len(iso9660Magic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("file too small to be an ISO9660 image: %w", err)
	}

	if !bytes.Equal(magic, iso9660Magic) {
		return fmt.Errorf("not an ISO9660 image: missing CD001 identifier at offset %d", iso9660MagicOffset)
	}

	return nil
}
