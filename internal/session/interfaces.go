package session

import (
	"context"

	"github.com/jbweber/ephemvm/internal/cloudinit"
	"github.com/jbweber/ephemvm/internal/qemu"
	"github.com/jbweber/ephemvm/internal/release"
)

// isoFetcher defines the cache operation needed to obtain the installer.
//
// In production, this is satisfied by *release.Fetcher.
// In tests, this is satisfied by mock implementations.
type isoFetcher interface {
	// Fetch returns the local path of a fresh ISO for id
	Fetch(ctx context.Context, id release.Identity) (string, error)
}

// seedBuilder compiles the NoCloud seed image.
//
// In production, this is satisfied by *cloudinit.LocalDSBuilder or
// *cloudinit.ISOBuilder.
type seedBuilder interface {
	Build(ctx context.Context, dir string, seed *cloudinit.Seed) (string, error)
}

// diskAllocator creates the root disk.
//
// In production, this is satisfied by *disk.Allocator.
type diskAllocator interface {
	Allocate(ctx context.Context, dir, size string) (string, error)
}

// vmLauncher runs the VMM.
//
// In production, this is satisfied by *qemu.Launcher.
type vmLauncher interface {
	Launch(ctx context.Context, workDir string, spec qemu.Spec) error
}
