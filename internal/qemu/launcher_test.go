package qemu

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jbweber/ephemvm/internal/extract"
)

type mockRunner struct {
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)
	name    string
	args    []string
	called  int
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.called++
	m.name, m.args = name, args
	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args...)
	}
	return nil, nil
}

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, dir, isoPath string) (extract.Boot, error)
	calls       int
}

func (m *mockExtractor) Extract(ctx context.Context, dir, isoPath string) (extract.Boot, error) {
	m.calls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, dir, isoPath)
	}
	return extract.Boot{Kernel: dir + "/vmlinuz", Initrd: dir + "/initrd"}, nil
}

func TestBuildArgs(t *testing.T) {
	baseArgs := []string{
		"-no-reboot",
		"-m", "4G",
		"-drive", "file=/tmp/w/root.img,format=raw,cache=none,if=virtio",
		"-net", "nic",
		"-net", "user,hostfwd=tcp::2222-:22",
	}
	boot := &extract.Boot{Kernel: "/tmp/w/vmlinuz", Initrd: "/tmp/w/initrd"}

	tests := []struct {
		name    string
		spec    Spec
		boot    *extract.Boot
		want    []string
		wantErr string
	}{
		{
			name: "disk only",
			spec: Spec{RAMSize: "4G", DiskPath: "/tmp/w/root.img"},
			want: baseArgs,
		},
		{
			name: "install phase",
			spec: Spec{
				RAMSize:       "4G",
				DiskPath:      "/tmp/w/root.img",
				ISOPath:       "/srv/iso/lunar.iso",
				SeedPath:      "/tmp/w/my-seed.img",
				KernelCmdline: "autoinstall",
			},
			boot: boot,
			want: append(append([]string{}, baseArgs...),
				"-cdrom", "/srv/iso/lunar.iso",
				"-drive", "file=/tmp/w/my-seed.img,format=raw,if=ide",
				"-kernel", "/tmp/w/vmlinuz",
				"-initrd", "/tmp/w/initrd",
				"-append", "autoinstall",
			),
		},
		{
			name: "first boot with options",
			spec: Spec{
				RAMSize:  "4G",
				DiskPath: "/tmp/w/root.img",
				SeedPath: "/tmp/w/my-seed.img",
				Options: []Option{
					EnableKVM{},
					Daemonize{},
					ExtraDrive{File: "/data.qcow2", Format: "qcow2"},
					ExtraNet{Kind: "tap", Params: []string{"ifname=tap0", "script=no"}},
				},
			},
			want: append(append([]string{}, baseArgs...),
				"-drive", "file=/tmp/w/my-seed.img,format=raw,if=ide",
				"-enable-kvm",
				"-daemonize",
				"-drive", "file=/data.qcow2,format=qcow2,if=virtio",
				"-net", "tap,ifname=tap0,script=no",
			),
		},
		{
			name:    "cmdline without iso",
			spec:    Spec{RAMSize: "4G", DiskPath: "/d", KernelCmdline: "autoinstall"},
			boot:    boot,
			wantErr: "requires an installer ISO",
		},
		{
			name:    "cmdline without boot files",
			spec:    Spec{RAMSize: "4G", DiskPath: "/d", ISOPath: "/i.iso", KernelCmdline: "autoinstall"},
			wantErr: "boot files must be provided",
		},
		{
			name:    "missing ram",
			spec:    Spec{DiskPath: "/d"},
			wantErr: "RAM size is required",
		},
		{
			name:    "missing disk",
			spec:    Spec{RAMSize: "4G"},
			wantErr: "disk path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildArgs(2222, tt.spec, tt.boot)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("BuildArgs() error = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildArgs() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildArgs() =\n%v\nwant\n%v", got, tt.want)
			}
		})
	}
}

func TestBuildArgs_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		if _, err := BuildArgs(port, Spec{RAMSize: "1G", DiskPath: "/d"}, nil); err == nil {
			t.Errorf("port %d: expected error", port)
		}
	}
}

func TestLaunch_Install(t *testing.T) {
	runner := &mockRunner{}
	extractor := &mockExtractor{}
	l := &Launcher{Binary: "kvm", SSHPort: 2200, Runner: runner, Extractor: extractor}

	err := l.Launch(context.Background(), "/tmp/w", Spec{
		RAMSize:       "2G",
		DiskPath:      "/tmp/w/root.img",
		ISOPath:       "/srv/iso/x.iso",
		KernelCmdline: "autoinstall quiet",
	})
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}

	if extractor.calls != 1 {
		t.Errorf("extractor called %d times, want 1", extractor.calls)
	}
	if runner.name != "kvm" {
		t.Errorf("binary = %q, want kvm", runner.name)
	}
	joined := strings.Join(runner.args, " ")
	for _, want := range []string{"-kernel /tmp/w/vmlinuz", "-initrd /tmp/w/initrd", "-append autoinstall quiet", "hostfwd=tcp::2200-:22"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestLaunch_NoKernelSkipsExtraction(t *testing.T) {
	runner := &mockRunner{}
	extractor := &mockExtractor{}
	l := &Launcher{Binary: "qemu-system-x86_64", SSHPort: 2222, Runner: runner, Extractor: extractor}

	if err := l.Launch(context.Background(), "/tmp/w", Spec{RAMSize: "1G", DiskPath: "/d"}); err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	if extractor.calls != 0 {
		t.Error("extractor should not run without a kernel command line")
	}
	if runner.called != 1 {
		t.Errorf("runner called %d times, want 1", runner.called)
	}
}

func TestLaunch_Errors(t *testing.T) {
	extractErr := errors.New("no casper")
	vmmErr := errors.New("kvm exited 1")

	tests := []struct {
		name       string
		spec       Spec
		extractErr error
		runErr     error
		wantErr    error
		errMsg     string
		wantRuns   int
	}{
		{
			name:     "cmdline without iso",
			spec:     Spec{RAMSize: "1G", DiskPath: "/d", KernelCmdline: "autoinstall"},
			errMsg:   "requires an installer ISO",
			wantRuns: 0,
		},
		{
			name:       "extraction fails",
			spec:       Spec{RAMSize: "1G", DiskPath: "/d", ISOPath: "/i.iso", KernelCmdline: "autoinstall"},
			extractErr: extractErr,
			wantErr:    extractErr,
			errMsg:     "failed to extract boot files",
			wantRuns:   0,
		},
		{
			name:     "vmm fails",
			spec:     Spec{RAMSize: "1G", DiskPath: "/d"},
			runErr:   vmmErr,
			wantErr:  vmmErr,
			errMsg:   "failed to run kvm",
			wantRuns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{
				RunFunc: func(context.Context, string, ...string) ([]byte, error) { return nil, tt.runErr },
			}
			extractor := &mockExtractor{
				ExtractFunc: func(context.Context, string, string) (extract.Boot, error) {
					return extract.Boot{Kernel: "k", Initrd: "i"}, tt.extractErr
				},
			}
			l := &Launcher{Binary: "kvm", SSHPort: 2222, Runner: runner, Extractor: extractor}

			err := l.Launch(context.Background(), t.TempDir(), tt.spec)
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("Launch() error = %v, want substring %q", err, tt.errMsg)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error should wrap %v", tt.wantErr)
			}
			if runner.called != tt.wantRuns {
				t.Errorf("runner called %d times, want %d", runner.called, tt.wantRuns)
			}
		})
	}
}
