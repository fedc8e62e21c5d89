// Package cloudinit builds the NoCloud seed disk that drives both the
// automated install and the first boot of the installed system.
//
// This package generates cloud-init configuration files (user-data, meta-data,
// vendor-data, network-config) following the cloud-init NoCloud datasource
// specification, and compiles them into a CIDATA image.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/ephemvm/internal/config"
)

// DefaultUserEntry tells cloud-init to keep the image's default user.
const DefaultUserEntry = "default"

// UserData represents the cloud-config user-data structure.
// This is marshaled to YAML and prefixed with "#cloud-config" header.
//
// See https://cloudinit.readthedocs.io/en/latest/explanation/format.html#cloud-config-data
type UserData struct {
	SSHImportID []string     `yaml:"ssh_import_id,omitempty"`
	Users       []any        `yaml:"users"` // DefaultUserEntry and/or *User
	Autoinstall *Autoinstall `yaml:"autoinstall,omitempty"`
}

// User is an entry of the cloud-config users list.
type User struct {
	Name              string   `yaml:"name"`
	SSHImportID       []string `yaml:"ssh_import_id,omitempty"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys,omitempty"`
	Sudo              string   `yaml:"sudo"`
	Shell             string   `yaml:"shell"`
}

// Autoinstall is the subiquity autoinstall section.
//
// See https://canonical-subiquity.readthedocs-hosted.com/en/latest/reference/autoinstall-reference.html
type Autoinstall struct {
	Version  int             `yaml:"version"`
	UserData *TargetUserData `yaml:"user-data"`
}

// TargetUserData is the cloud-config subiquity hands to the installed system.
type TargetUserData struct {
	Users             []any     `yaml:"users"`
	Chpasswd          *Chpasswd `yaml:"chpasswd,omitempty"`
	SSHPasswordAuth   bool      `yaml:"ssh_pwauth"`
	Hostname          string    `yaml:"hostname"`
	SSHImportID       []string  `yaml:"ssh_import_id,omitempty"`
	SSHAuthorizedKeys []string  `yaml:"ssh_authorized_keys,omitempty"`
	Password          string    `yaml:"password,omitempty"`
}

// Chpasswd configures user password settings.
type Chpasswd struct {
	Expire bool `yaml:"expire"` // Whether to expire passwords on first login
}

// MetaData represents the cloud-init meta-data structure.
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// NetworkConfig represents the netplan v2 network configuration.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/network-config-format-v2.html
type NetworkConfig struct {
	Version   int                       `yaml:"version"`
	Ethernets map[string]EthernetConfig `yaml:"ethernets"`
}

// EthernetConfig represents a single ethernet interface configuration.
type EthernetConfig struct {
	Match MatchConfig `yaml:"match"`
	DHCP4 bool        `yaml:"dhcp4"`
}

// MatchConfig matches interfaces by name glob.
type MatchConfig struct {
	Name string `yaml:"name"`
}

// GenerateUserData generates the user-data content for the seed disk.
//
// The live session gets a passwordless-sudo user reachable over SSH. When
// autoinstall is true the document also carries the autoinstall section that
// subiquity uses to install unattended and to configure the installed system.
func GenerateUserData(cfg *config.CloudInitConfig, autoinstall bool) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("cloud-init configuration cannot be nil")
	}

	userData := UserData{
		SSHImportID: cfg.SSHImportIDs,
		Users: []any{
			DefaultUserEntry,
			&User{
				Name:              cfg.User,
				SSHImportID:       cfg.SSHImportIDs,
				SSHAuthorizedKeys: cfg.SSHKeys,
				Sudo:              "ALL=(ALL) NOPASSWD:ALL",
				Shell:             "/bin/bash",
			},
		},
	}

	if autoinstall {
		userData.Autoinstall = &Autoinstall{
			Version: 1,
			UserData: &TargetUserData{
				Users:             []any{DefaultUserEntry},
				Chpasswd:          &Chpasswd{Expire: false},
				SSHPasswordAuth:   true,
				Hostname:          cfg.Hostname,
				SSHImportID:       cfg.SSHImportIDs,
				SSHAuthorizedKeys: cfg.SSHKeys,
				Password:          cfg.Password,
			},
		}
	}

	yamlBytes, err := yaml.Marshal(&userData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data to YAML: %w", err)
	}

	// Prepend #cloud-config header (required by cloud-init spec)
	return "#cloud-config\n" + string(yamlBytes), nil
}

// GenerateMetaData generates the meta-data content.
//
// Every seed gets a fresh instance-id so cloud-init treats each ephemeral
// boot as a first boot.
func GenerateMetaData(cfg *config.CloudInitConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("cloud-init configuration cannot be nil")
	}

	metaData := MetaData{
		InstanceID:    "iid-ephemvm-" + uuid.NewString(),
		LocalHostname: cfg.Hostname,
	}

	yamlBytes, err := yaml.Marshal(&metaData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data to YAML: %w", err)
	}

	return string(yamlBytes), nil
}

// GenerateNetworkConfig generates a netplan v2 document enabling DHCPv4 on
// every en* interface. QEMU user networking provides the DHCP server.
func GenerateNetworkConfig() (string, error) {
	networkConfig := NetworkConfig{
		Version: 2,
		Ethernets: map[string]EthernetConfig{
			"all-en": {
				Match: MatchConfig{Name: "en*"},
				DHCP4: true,
			},
		},
	}

	yamlBytes, err := yaml.Marshal(&networkConfig)
	if err != nil {
		return "", fmt.Errorf("failed to marshal network-config to YAML: %w", err)
	}

	return string(yamlBytes), nil
}
