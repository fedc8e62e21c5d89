package qemu

import (
	"fmt"
	"strings"
)

// Option is a typed VMM flag appended after the base command line.
type Option interface {
	Args() []string
}

// EnableKVM turns on hardware acceleration.
type EnableKVM struct{}

// Args implements Option.
func (EnableKVM) Args() []string { return []string{"-enable-kvm"} }

// Daemonize detaches the VMM once it has started.
type Daemonize struct{}

// Args implements Option.
func (Daemonize) Args() []string { return []string{"-daemonize"} }

// ExtraDrive attaches an additional drive.
type ExtraDrive struct {
	File      string
	Format    string // defaults to raw
	Interface string // defaults to virtio
}

// Args implements Option.
func (d ExtraDrive) Args() []string {
	format := d.Format
	if format == "" {
		format = "raw"
	}
	iface := d.Interface
	if iface == "" {
		iface = "virtio"
	}
	return []string{"-drive", fmt.Sprintf("file=%s,format=%s,if=%s", d.File, format, iface)}
}

// ExtraNet adds a -net backend, e.g. Kind "tap" with Params ["ifname=tap0"].
type ExtraNet struct {
	Kind   string
	Params []string
}

// Args implements Option.
func (n ExtraNet) Args() []string {
	return []string{"-net", strings.Join(append([]string{n.Kind}, n.Params...), ",")}
}
