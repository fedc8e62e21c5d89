package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/ephemvm/internal/release"
)

// Default values. These match the constants the tool historically hard-coded.
const (
	DefaultCacheRoot     = "/srv/iso"
	DefaultSSHPort       = 2222
	DefaultRAMSize       = "4G"
	DefaultDiskSize      = "20G"
	DefaultMirror        = release.DefaultMirror
	DefaultDistribution  = "ubuntu"
	DefaultCodename      = "lunar"
	DefaultArch          = "amd64"
	DefaultUser          = "ephemeral"
	DefaultSSHImportID   = "chad.smith"
	DefaultHostname      = "ubuntu-server3"
	DefaultPassword      = "passw0rd"
	DefaultKernelCmdline = "autoinstall"
	DefaultVMMBinary     = "kvm"

	SeedMethodLocalDS = "cloud-localds"
	SeedMethodISO     = "iso9660"

	ExtractMethodMount = "mount"
	ExtractMethodISO   = "iso9660"
)

// sizePattern matches sizes understood by both qemu -m and truncate -s.
var sizePattern = regexp.MustCompile(`^[0-9]+[KMGTkmgt]?$`)

// Config is the complete ephemvm configuration.
type Config struct {
	CacheRoot string          `yaml:"cache_root"`
	SSHPort   int             `yaml:"ssh_port"`
	RAMSize   string          `yaml:"ram_size"`
	DiskSize  string          `yaml:"disk_size"`
	Mirror    string          `yaml:"mirror"`
	Release   ReleaseConfig   `yaml:"release"`
	CloudInit CloudInitConfig `yaml:"cloud_init"`
	Install   InstallConfig   `yaml:"install"`
	VMM       VMMConfig       `yaml:"vmm"`
	Log       LogConfig       `yaml:"log"`
}

// ReleaseConfig selects the installer image.
type ReleaseConfig struct {
	Distribution string `yaml:"distribution"`
	Codename     string `yaml:"codename"`
	Flavor       string `yaml:"flavor"` // desktop or live-server
	Arch         string `yaml:"arch"`
}

// CloudInitConfig describes the user that the seed disk provisions.
type CloudInitConfig struct {
	User         string   `yaml:"user"`
	SSHImportIDs []string `yaml:"ssh_import_ids,omitempty"` // Launchpad IDs, e.g. "lp:someone" or "someone"
	SSHKeys      []string `yaml:"ssh_keys,omitempty"`
	Hostname     string   `yaml:"hostname"`
	Password     string   `yaml:"password"` // autoinstall identity password
	VendorData   string   `yaml:"vendor_data,omitempty"`
	NetworkDHCP  bool     `yaml:"network_dhcp,omitempty"`
}

// InstallConfig controls the automated install boot.
type InstallConfig struct {
	KernelCmdline *string `yaml:"kernel_cmdline,omitempty"` // "" boots the ISO from the cdrom
	AttachSeed    *bool   `yaml:"attach_seed,omitempty"`    // Pointer to distinguish unset vs false
}

// VMMConfig controls how the VMM and its helpers are invoked.
type VMMConfig struct {
	Binary        string `yaml:"binary"`
	EnableKVM     bool   `yaml:"enable_kvm,omitempty"`
	SeedMethod    string `yaml:"seed_method"`
	ExtractMethod string `yaml:"extract_method"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration populated with every default.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.CacheRoot == "" {
		c.CacheRoot = DefaultCacheRoot
	}
	if c.SSHPort == 0 {
		c.SSHPort = DefaultSSHPort
	}
	if c.RAMSize == "" {
		c.RAMSize = DefaultRAMSize
	}
	if c.DiskSize == "" {
		c.DiskSize = DefaultDiskSize
	}
	if c.Mirror == "" {
		c.Mirror = DefaultMirror
	}

	if c.Release.Distribution == "" {
		c.Release.Distribution = DefaultDistribution
	}
	if c.Release.Codename == "" {
		c.Release.Codename = DefaultCodename
	}
	if c.Release.Flavor == "" {
		c.Release.Flavor = string(release.FlavorLiveServer)
	}
	if c.Release.Arch == "" {
		c.Release.Arch = DefaultArch
	}

	if c.CloudInit.User == "" {
		c.CloudInit.User = DefaultUser
	}
	// An explicit empty list, or inline keys, opts out of the default import.
	if c.CloudInit.SSHImportIDs == nil && len(c.CloudInit.SSHKeys) == 0 {
		c.CloudInit.SSHImportIDs = []string{DefaultSSHImportID}
	}
	if c.CloudInit.Hostname == "" {
		c.CloudInit.Hostname = DefaultHostname
	}
	if c.CloudInit.Password == "" {
		c.CloudInit.Password = DefaultPassword
	}

	if c.Install.KernelCmdline == nil {
		cmdline := DefaultKernelCmdline
		c.Install.KernelCmdline = &cmdline
	}
	if c.Install.AttachSeed == nil {
		attach := true
		c.Install.AttachSeed = &attach
	}

	if c.VMM.Binary == "" {
		c.VMM.Binary = DefaultVMMBinary
	}
	if c.VMM.SeedMethod == "" {
		c.VMM.SeedMethod = SeedMethodLocalDS
	}
	if c.VMM.ExtractMethod == "" {
		c.VMM.ExtractMethod = ExtractMethodMount
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Normalize sanitizes user input to consistent formats.
func (c *Config) Normalize() {
	c.CacheRoot = filepath.Clean(strings.TrimSpace(c.CacheRoot))
	c.Mirror = strings.TrimRight(strings.TrimSpace(c.Mirror), "/")
	c.Release.Distribution = strings.ToLower(strings.TrimSpace(c.Release.Distribution))
	c.Release.Codename = strings.ToLower(strings.TrimSpace(c.Release.Codename))
	c.Release.Flavor = strings.ToLower(strings.TrimSpace(c.Release.Flavor))
	c.Release.Arch = strings.ToLower(strings.TrimSpace(c.Release.Arch))
	c.CloudInit.Hostname = strings.ToLower(strings.TrimSpace(c.CloudInit.Hostname))
}

// Validate checks the configuration for errors.
// Does not check host resources (tools on PATH, free space) - only config structure.
func (c *Config) Validate() error {
	if c.CacheRoot == "" {
		return fmt.Errorf("cache_root is required")
	}
	if !filepath.IsAbs(c.CacheRoot) {
		return fmt.Errorf("cache_root must be an absolute path, got %q", c.CacheRoot)
	}

	if c.SSHPort <= 0 || c.SSHPort > 65535 {
		return fmt.Errorf("ssh_port must be between 1 and 65535, got %d", c.SSHPort)
	}

	if !sizePattern.MatchString(c.RAMSize) {
		return fmt.Errorf("ram_size must be a number with an optional K/M/G/T suffix, got %q", c.RAMSize)
	}
	if !sizePattern.MatchString(c.DiskSize) {
		return fmt.Errorf("disk_size must be a number with an optional K/M/G/T suffix, got %q", c.DiskSize)
	}

	u, err := url.Parse(c.Mirror)
	if err != nil {
		return fmt.Errorf("invalid mirror URL %q: %w", c.Mirror, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("mirror must be an http or https URL, got %q", c.Mirror)
	}

	if err := c.Release.Validate(); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	if err := c.CloudInit.Validate(); err != nil {
		return fmt.Errorf("cloud_init: %w", err)
	}
	if err := c.VMM.Validate(); err != nil {
		return fmt.Errorf("vmm: %w", err)
	}

	return nil
}

// Validate checks release selection.
func (r *ReleaseConfig) Validate() error {
	if _, err := r.Identity(); err != nil {
		return err
	}
	return nil
}

// Identity converts the release selection into an artifact identity.
func (r *ReleaseConfig) Identity() (release.Identity, error) {
	flavor, err := release.ParseFlavor(r.Flavor)
	if err != nil {
		return release.Identity{}, fmt.Errorf("flavor: %w", err)
	}
	id := release.Identity{
		Distribution: r.Distribution,
		Release:      r.Codename,
		Flavor:       flavor,
		Arch:         r.Arch,
	}
	if err := id.Validate(); err != nil {
		return release.Identity{}, err
	}
	return id, nil
}

// Validate checks cloud-init configuration.
func (c *CloudInitConfig) Validate() error {
	userPattern := `^[a-z_][a-z0-9_-]*$`
	matched, err := regexp.MatchString(userPattern, c.User)
	if err != nil {
		return fmt.Errorf("user validation error: %w", err)
	}
	if !matched {
		return fmt.Errorf("user must be a valid login name, got %q", c.User)
	}

	// RFC 1123 hostname label
	hostnamePattern := `^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`
	matched, err = regexp.MatchString(hostnamePattern, c.Hostname)
	if err != nil {
		return fmt.Errorf("hostname validation error: %w", err)
	}
	if !matched {
		return fmt.Errorf("hostname must be a single DNS label, got %q", c.Hostname)
	}

	for i, id := range c.SSHImportIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("ssh_import_ids[%d] cannot be empty", i)
		}
	}

	for i, key := range c.SSHKeys {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
			return fmt.Errorf("ssh_keys[%d] is not a valid SSH public key: %w", i, err)
		}
	}

	return nil
}

// Validate checks VMM configuration.
func (v *VMMConfig) Validate() error {
	if v.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	switch v.SeedMethod {
	case SeedMethodLocalDS, SeedMethodISO:
	default:
		return fmt.Errorf("seed_method must be %q or %q, got %q", SeedMethodLocalDS, SeedMethodISO, v.SeedMethod)
	}
	switch v.ExtractMethod {
	case ExtractMethodMount, ExtractMethodISO:
	default:
		return fmt.Errorf("extract_method must be %q or %q, got %q", ExtractMethodMount, ExtractMethodISO, v.ExtractMethod)
	}
	return nil
}

// Cmdline returns the kernel command line for the install boot. An empty
// result means the installer boots from the cdrom with its own bootloader.
func (i *InstallConfig) Cmdline() string {
	if i.KernelCmdline == nil {
		return DefaultKernelCmdline
	}
	return *i.KernelCmdline
}

// ShouldAttachSeed reports whether the install boot gets the seed disk.
func (i *InstallConfig) ShouldAttachSeed() bool {
	return i.AttachSeed == nil || *i.AttachSeed
}

// LoadFromFile loads a configuration from a YAML file.
// An empty path yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromYAML(data)
}

// LoadFromYAML loads a configuration from YAML bytes.
func LoadFromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
