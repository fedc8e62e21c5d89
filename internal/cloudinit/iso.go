package cloudinit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/kdomanski/iso9660"
)

// VolumeLabel is the volume identifier the NoCloud datasource looks for.
// It must be uppercase.
const VolumeLabel = "CIDATA"

// GenerateISO creates a NoCloud CIDATA image from seed.
//
// The image root holds user-data and meta-data, plus vendor-data and
// network-config when the seed carries them.
//
// Returns the ISO image as a byte slice.
func GenerateISO(seed *Seed) ([]byte, error) {
	if seed == nil {
		return nil, fmt.Errorf("seed cannot be nil")
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		// The image has been produced by the time cleanup runs.
		_ = writer.Cleanup()
	}()

	for _, f := range seed.files() {
		if err := writer.AddFile(strings.NewReader(f.content), f.name); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.name, err)
		}
	}

	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, VolumeLabel); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}

	return buf.Bytes(), nil
}
