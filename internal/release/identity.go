// Package release locates, caches and refreshes daily installer images.
//
// An Identity names one installer build (distribution, release codename,
// flavor, architecture). Everything else, both the remote URLs on the
// cdimage mirror and the local cache paths, is derived from it:
//
//	<mirror>/[ubuntu-server/]daily-live/current/<release>-<flavor>-<arch>.{iso,manifest}
//	<cache-root>/<release>/<release>-<flavor>-<arch>.{iso,manifest}
//
// The Fetcher keeps the cached ISO fresh by comparing the checksum of the
// remote .manifest file against the one seen on the previous run.
package release

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultMirror is the cdimage host daily builds are published on.
const DefaultMirror = "https://cdimage.ubuntu.com"

// Flavor is an installer variant.
type Flavor string

const (
	// FlavorDesktop is the desktop live image.
	FlavorDesktop Flavor = "desktop"
	// FlavorLiveServer is the subiquity server live image.
	FlavorLiveServer Flavor = "live-server"
)

// ParseFlavor converts a string into a Flavor.
func ParseFlavor(s string) (Flavor, error) {
	switch f := Flavor(s); f {
	case FlavorDesktop, FlavorLiveServer:
		return f, nil
	default:
		return "", fmt.Errorf("unknown flavor %q (valid flavors: desktop, live-server)", s)
	}
}

// segmentPattern keeps identity fields safe to embed in paths and URLs.
var segmentPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Identity names a single installer artifact. It is a value type.
type Identity struct {
	Distribution string
	Release      string
	Flavor       Flavor
	Arch         string
}

// Validate checks that every field is set and path-safe.
func (id Identity) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"distribution", id.Distribution},
		{"release", id.Release},
		{"arch", id.Arch},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s is required", f.name)
		}
		if !segmentPattern.MatchString(f.value) {
			return fmt.Errorf("%s %q contains invalid characters", f.name, f.value)
		}
	}
	if _, err := ParseFlavor(string(id.Flavor)); err != nil {
		return err
	}
	return nil
}

// BaseName returns "<release>-<flavor>-<arch>".
func (id Identity) BaseName() string {
	return fmt.Sprintf("%s-%s-%s", id.Release, id.Flavor, id.Arch)
}

func (id Identity) String() string {
	return id.Distribution + "/" + id.BaseName()
}

// Paths are the local cache locations of an artifact.
type Paths struct {
	Dir      string
	ISO      string
	Manifest string
}

// Paths returns the cache locations under cacheRoot.
func (id Identity) Paths(cacheRoot string) Paths {
	dir := filepath.Join(cacheRoot, id.Release)
	base := id.BaseName()
	return Paths{
		Dir:      dir,
		ISO:      filepath.Join(dir, base+".iso"),
		Manifest: filepath.Join(dir, base+".manifest"),
	}
}

// URLs are the remote locations of an artifact.
type URLs struct {
	ISO      string
	Manifest string
}

// URLs returns the download locations on mirror. Server images live under
// the ubuntu-server/ tree; desktop images at the top level.
func (id Identity) URLs(mirror string) URLs {
	if mirror == "" {
		mirror = DefaultMirror
	}
	flavorSubdir := ""
	if id.Flavor == FlavorLiveServer {
		flavorSubdir = "ubuntu-server/"
	}
	base := fmt.Sprintf("%s/%sdaily-live/current/%s", strings.TrimRight(mirror, "/"), flavorSubdir, id.BaseName())
	return URLs{
		ISO:      base + ".iso",
		Manifest: base + ".manifest",
	}
}
