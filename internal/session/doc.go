// Package session runs one ephemeral installer test end to end.
//
// A session orchestrates the low-level components (cloudinit, disk, release,
// qemu) in a fixed order:
//  1. Build the NoCloud seed image
//  2. Allocate the raw root disk
//  3. Fetch the installer ISO through the manifest-checked cache
//  4. Boot the installer with the kernel command line (Installing)
//  5. Boot the installed disk daemonized (FirstBoot)
//
// Working Directory:
//
// Every artifact except the cached ISO lives in a temporary directory that
// is removed on every exit path. The daemonized first boot keeps its open
// file handles, so the VM keeps running after the directory is gone.
//
// Context Support:
//
// All operations accept a context.Context. Cancelling it kills a running
// foreground VMM and stops an in-flight download.
package session
