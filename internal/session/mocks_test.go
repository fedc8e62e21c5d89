package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/jbweber/ephemvm/internal/cloudinit"
	"github.com/jbweber/ephemvm/internal/qemu"
	"github.com/jbweber/ephemvm/internal/release"
)

// mockFetcher is a mock implementation of the isoFetcher interface for testing.
type mockFetcher struct {
	mu sync.Mutex

	fetchFunc  func(ctx context.Context, id release.Identity) (string, error)
	fetchCalls []release.Identity
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		// Default: ISO is cached
		fetchFunc: func(ctx context.Context, id release.Identity) (string, error) {
			return "/srv/iso/" + id.BaseName() + ".iso", nil
		},
	}
}

func (m *mockFetcher) Fetch(ctx context.Context, id release.Identity) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls = append(m.fetchCalls, id)
	return m.fetchFunc(ctx, id)
}

// mockSeedBuilder is a mock implementation of the seedBuilder interface for testing.
type mockSeedBuilder struct {
	mu sync.Mutex

	buildFunc  func(ctx context.Context, dir string, seed *cloudinit.Seed) (string, error)
	buildCalls []*cloudinit.Seed
	buildDirs  []string
}

func newMockSeedBuilder() *mockSeedBuilder {
	return &mockSeedBuilder{
		// Default: write a placeholder image into dir
		buildFunc: func(ctx context.Context, dir string, seed *cloudinit.Seed) (string, error) {
			path := filepath.Join(dir, cloudinit.SeedImageName)
			return path, os.WriteFile(path, []byte("seed"), 0644)
		},
	}
}

func (m *mockSeedBuilder) Build(ctx context.Context, dir string, seed *cloudinit.Seed) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildCalls = append(m.buildCalls, seed)
	m.buildDirs = append(m.buildDirs, dir)
	return m.buildFunc(ctx, dir, seed)
}

// mockDiskAllocator is a mock implementation of the diskAllocator interface for testing.
type mockDiskAllocator struct {
	mu sync.Mutex

	allocateFunc  func(ctx context.Context, dir, size string) (string, error)
	allocateCalls []string // sizes
}

func newMockDiskAllocator() *mockDiskAllocator {
	return &mockDiskAllocator{
		allocateFunc: func(ctx context.Context, dir, size string) (string, error) {
			return filepath.Join(dir, "root.img"), nil
		},
	}
}

func (m *mockDiskAllocator) Allocate(ctx context.Context, dir, size string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocateCalls = append(m.allocateCalls, size)
	return m.allocateFunc(ctx, dir, size)
}

// mockLauncher is a mock implementation of the vmLauncher interface for testing.
type mockLauncher struct {
	mu sync.Mutex

	launchFunc  func(ctx context.Context, workDir string, spec qemu.Spec) error
	launchCalls []qemu.Spec
}

func newMockLauncher() *mockLauncher {
	return &mockLauncher{
		// Default: VMM exits cleanly
		launchFunc: func(ctx context.Context, workDir string, spec qemu.Spec) error {
			return nil
		},
	}
}

func (m *mockLauncher) Launch(ctx context.Context, workDir string, spec qemu.Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launchCalls = append(m.launchCalls, spec)
	return m.launchFunc(ctx, workDir, spec)
}
