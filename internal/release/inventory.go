package release

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Artifact describes one cached ISO found under the cache root.
type Artifact struct {
	Name             string    `json:"name" yaml:"name"`
	Release          string    `json:"release" yaml:"release"`
	ISOPath          string    `json:"isoPath" yaml:"isoPath"`
	Size             int64     `json:"size" yaml:"size"`
	ModTime          time.Time `json:"modTime" yaml:"modTime"`
	ManifestPath     string    `json:"manifestPath,omitempty" yaml:"manifestPath,omitempty"`
	ManifestChecksum string    `json:"manifestChecksum,omitempty" yaml:"manifestChecksum,omitempty"`
	Valid            bool      `json:"valid" yaml:"valid"` // carries an ISO9660 volume descriptor
}

// SizeGB returns the ISO size in GiB.
func (a Artifact) SizeGB() float64 {
	return gigabytes(a.Size)
}

// HasManifest reports whether a manifest sits next to the ISO.
func (a Artifact) HasManifest() bool {
	return a.ManifestPath != ""
}

// List returns every cached ISO under cacheRoot, sorted by release then name.
// A missing cache root yields an empty list. Unfinished downloads are skipped.
func List(cacheRoot string) ([]Artifact, error) {
	releases, err := os.ReadDir(cacheRoot)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache root %s: %w", cacheRoot, err)
	}

	var artifacts []Artifact
	for _, rel := range releases {
		if !rel.IsDir() {
			continue
		}

		dir := filepath.Join(cacheRoot, rel.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read cache directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".iso" {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
			}

			name := strings.TrimSuffix(entry.Name(), ".iso")
			artifact := Artifact{
				Name:    name,
				Release: rel.Name(),
				ISOPath: filepath.Join(dir, entry.Name()),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
			artifact.Valid = DetectISO(artifact.ISOPath) == nil

			manifestPath := filepath.Join(dir, name+".manifest")
			if isRegularFile(manifestPath) {
				sum, err := fileChecksum(manifestPath)
				if err != nil {
					return nil, err
				}
				artifact.ManifestPath = manifestPath
				artifact.ManifestChecksum = sum
			}

			artifacts = append(artifacts, artifact)
		}
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].Release != artifacts[j].Release {
			return artifacts[i].Release < artifacts[j].Release
		}
		return artifacts[i].Name < artifacts[j].Name
	})

	return artifacts, nil
}
