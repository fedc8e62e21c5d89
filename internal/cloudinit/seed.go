package cloudinit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jbweber/ephemvm/internal/config"
	"github.com/jbweber/ephemvm/internal/logger"
	"github.com/jbweber/ephemvm/internal/shell"
)

// File names inside the seed working directory and on the CIDATA volume.
const (
	SeedImageName     = "my-seed.img"
	UserDataFile      = "user-data"
	MetaDataFile      = "meta-data"
	VendorDataFile    = "vendor-data"
	NetworkConfigFile = "network-config"
)

// Seed holds the documents of a NoCloud seed. VendorData and NetworkConfig
// are optional.
type Seed struct {
	UserData      string
	MetaData      string
	VendorData    string
	NetworkConfig string
}

type seedFile struct {
	name    string
	content string
}

func (s *Seed) files() []seedFile {
	files := []seedFile{
		{UserDataFile, s.UserData},
		{MetaDataFile, s.MetaData},
	}
	if s.VendorData != "" {
		files = append(files, seedFile{VendorDataFile, s.VendorData})
	}
	if s.NetworkConfig != "" {
		files = append(files, seedFile{NetworkConfigFile, s.NetworkConfig})
	}
	return files
}

// NewSeed generates every seed document from cfg.
func NewSeed(cfg *config.CloudInitConfig, autoinstall bool) (*Seed, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cloud-init configuration cannot be nil")
	}

	userData, err := GenerateUserData(cfg, autoinstall)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user-data: %w", err)
	}

	metaData, err := GenerateMetaData(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate meta-data: %w", err)
	}

	seed := &Seed{
		UserData:   userData,
		MetaData:   metaData,
		VendorData: cfg.VendorData,
	}

	if cfg.NetworkDHCP {
		networkConfig, err := GenerateNetworkConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to generate network-config: %w", err)
		}
		seed.NetworkConfig = networkConfig
	}

	return seed, nil
}

// WriteFiles writes each document to its fixed name in dir, overwriting any
// existing file. It returns the written paths keyed by file name.
func (s *Seed) WriteFiles(dir string) (map[string]string, error) {
	paths := make(map[string]string)
	for _, f := range s.files() {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths[f.name] = path
	}
	return paths, nil
}

// Builder compiles a seed into a disk image inside dir and returns its path.
type Builder interface {
	Build(ctx context.Context, dir string, seed *Seed) (string, error)
}

// LocalDSBuilder compiles the image with the cloud-localds tool.
type LocalDSBuilder struct {
	runner shell.Runner
}

// NewLocalDSBuilder creates a builder that shells out to cloud-localds.
func NewLocalDSBuilder(runner shell.Runner) *LocalDSBuilder {
	return &LocalDSBuilder{runner: runner}
}

// Build writes the seed documents to dir and runs
// cloud-localds [-v vendor-data] [-N network-config] my-seed.img user-data meta-data.
func (b *LocalDSBuilder) Build(ctx context.Context, dir string, seed *Seed) (string, error) {
	if seed == nil {
		return "", fmt.Errorf("seed cannot be nil")
	}

	paths, err := seed.WriteFiles(dir)
	if err != nil {
		return "", err
	}

	imgPath := filepath.Join(dir, SeedImageName)

	var args []string
	if p, ok := paths[VendorDataFile]; ok {
		args = append(args, "-v", p)
	}
	if p, ok := paths[NetworkConfigFile]; ok {
		args = append(args, "-N", p)
	}
	args = append(args, imgPath, paths[UserDataFile], paths[MetaDataFile])

	logger.Logger().Infof("Building seed image %s with cloud-localds", imgPath)
	if _, err := b.runner.Run(ctx, "cloud-localds", args...); err != nil {
		return "", fmt.Errorf("failed to build seed image: %w", err)
	}

	return imgPath, nil
}

// ISOBuilder compiles the image in-process as an ISO9660 CIDATA volume.
type ISOBuilder struct{}

// NewISOBuilder creates an in-process seed builder.
func NewISOBuilder() *ISOBuilder {
	return &ISOBuilder{}
}

// Build writes the seed documents to dir and writes my-seed.img next to them.
func (b *ISOBuilder) Build(_ context.Context, dir string, seed *Seed) (string, error) {
	if seed == nil {
		return "", fmt.Errorf("seed cannot be nil")
	}

	if _, err := seed.WriteFiles(dir); err != nil {
		return "", err
	}

	isoData, err := GenerateISO(seed)
	if err != nil {
		return "", fmt.Errorf("failed to build seed image: %w", err)
	}

	imgPath := filepath.Join(dir, SeedImageName)
	logger.Logger().Infof("Writing seed image %s (%d bytes)", imgPath, len(isoData))
	if err := os.WriteFile(imgPath, isoData, 0644); err != nil {
		return "", fmt.Errorf("failed to write seed image %s: %w", imgPath, err)
	}

	return imgPath, nil
}

// NewBuilder returns the builder selected by method
// (config.SeedMethodLocalDS or config.SeedMethodISO).
func NewBuilder(method string, runner shell.Runner) (Builder, error) {
	switch method {
	case config.SeedMethodLocalDS:
		return NewLocalDSBuilder(runner), nil
	case config.SeedMethodISO:
		return NewISOBuilder(), nil
	default:
		return nil, fmt.Errorf("unsupported seed method %q", method)
	}
}
