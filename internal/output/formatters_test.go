package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/ephemvm/internal/release"
	"github.com/jbweber/ephemvm/internal/status"
)

// createTestArtifact creates a cached ISO entry for testing.
func createTestArtifact(name, rel string, withManifest bool) release.Artifact {
	a := release.Artifact{
		Name:    name,
		Release: rel,
		ISOPath: "/srv/iso/" + rel + "/" + name + ".iso",
		Size:    3 << 30,
		ModTime: time.Now().Add(-5 * time.Minute),
		Valid:   true,
	}
	if withManifest {
		a.ManifestPath = "/srv/iso/" + rel + "/" + name + ".manifest"
		a.ManifestChecksum = "b1946ac92492d2347c6235b4d2611184"
	}
	return a
}

func createTestTracker() *status.Tracker {
	tr := status.NewTracker()
	status.MarkSeedReady(tr, "/tmp/ephemvm-1/my-seed.img")
	status.MarkDiskReady(tr, "/tmp/ephemvm-1/root.img")
	return tr
}

func TestTableFormatter_FormatArtifacts(t *testing.T) {
	f := &TableFormatter{}
	artifacts := []release.Artifact{
		createTestArtifact("ubuntu-lunar-live-server-amd64", "lunar", true),
		createTestArtifact("ubuntu-noble-desktop-amd64", "noble", false),
	}

	got, err := f.FormatArtifacts(artifacts)
	if err != nil {
		t.Fatalf("FormatArtifacts() error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), got)
	}
	for _, want := range []string{"NAME", "RELEASE", "SIZE", "VALID", "MANIFEST", "AGE"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("header missing %s: %q", want, lines[0])
		}
	}
	if !strings.Contains(lines[1], "ubuntu-lunar-live-server-amd64") || !strings.Contains(lines[1], "b1946ac92492") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if strings.Contains(lines[1], "b1946ac92492d") {
		t.Errorf("checksum should be shortened: %q", lines[1])
	}
	if !strings.Contains(lines[1], "3.00 GiB") || !strings.Contains(lines[1], "yes") || !strings.Contains(lines[1], "5m") {
		t.Errorf("row 1 should show size and age: %q", lines[1])
	}
	if !strings.Contains(lines[2], "noble") || !strings.Contains(lines[2], " - ") {
		t.Errorf("row 2 should show missing manifest: %q", lines[2])
	}
}

func TestTableFormatter_NoHeadersAndEmpty(t *testing.T) {
	f := &TableFormatter{NoHeaders: true}

	got, err := f.FormatArtifacts([]release.Artifact{createTestArtifact("a", "lunar", true)})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "NAME") {
		t.Error("header should be omitted")
	}

	got, err = f.FormatArtifacts(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "No cached ISOs found\n" {
		t.Errorf("empty output = %q", got)
	}
}

func TestTableFormatter_FormatStatus(t *testing.T) {
	got, err := (&TableFormatter{}).FormatStatus(createTestTracker())
	if err != nil {
		t.Fatalf("FormatStatus() error: %v", err)
	}

	if !strings.HasPrefix(got, "Phase: Pending\n") {
		t.Errorf("output should start with phase, got %q", got)
	}
	for _, want := range []string{"CONDITION", "SeedReady", "DiskReady", "/tmp/ephemvm-1/root.img"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	if _, err := (&TableFormatter{}).FormatStatus(nil); err == nil {
		t.Error("expected error for nil status")
	}
}

func TestYAMLFormatter_FormatArtifacts(t *testing.T) {
	f := &YAMLFormatter{}
	artifacts := []release.Artifact{
		createTestArtifact("one", "lunar", true),
		createTestArtifact("two", "noble", false),
	}

	got, err := f.FormatArtifacts(artifacts)
	if err != nil {
		t.Fatalf("FormatArtifacts() error: %v", err)
	}

	docs := strings.Split(got, "---\n")
	if len(docs) != 2 {
		t.Fatalf("expected 2 YAML documents, got %d", len(docs))
	}

	var a release.Artifact
	if err := yaml.Unmarshal([]byte(docs[0]), &a); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if a.Name != "one" || a.ManifestChecksum == "" {
		t.Errorf("decoded = %+v", a)
	}
	if strings.Contains(docs[1], "manifestPath") {
		t.Error("empty manifest fields should be omitted")
	}

	if got, _ := f.FormatArtifacts(nil); got != "" {
		t.Errorf("empty output = %q, want empty", got)
	}
}

func TestYAMLFormatter_FormatStatus(t *testing.T) {
	got, err := (&YAMLFormatter{}).FormatStatus(createTestTracker())
	if err != nil {
		t.Fatalf("FormatStatus() error: %v", err)
	}

	var tr status.Tracker
	if err := yaml.Unmarshal([]byte(got), &tr); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if tr.Phase != status.PhasePending || len(tr.Conditions) != 2 {
		t.Errorf("decoded = %+v", tr)
	}
}

func TestJSONFormatter_FormatArtifacts(t *testing.T) {
	f := &JSONFormatter{}

	got, err := f.FormatArtifacts([]release.Artifact{createTestArtifact("one", "lunar", true)})
	if err != nil {
		t.Fatalf("FormatArtifacts() error: %v", err)
	}

	var decoded []release.Artifact
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Release != "lunar" || decoded[0].Size != 3<<30 {
		t.Errorf("decoded = %+v", decoded)
	}

	if got, _ := f.FormatArtifacts(nil); got != "[]\n" {
		t.Errorf("empty output = %q, want []", got)
	}
}

func TestJSONFormatter_FormatStatus(t *testing.T) {
	got, err := (&JSONFormatter{}).FormatStatus(createTestTracker())
	if err != nil {
		t.Fatalf("FormatStatus() error: %v", err)
	}
	if !strings.Contains(got, `"phase": "Pending"`) {
		t.Errorf("output missing phase:\n%s", got)
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name: "table format",
			opts: Options{Format: FormatTable},
		},
		{
			name: "yaml format",
			opts: Options{Format: FormatYAML},
		},
		{
			name: "json format",
			opts: Options{Format: FormatJSON},
		},
		{
			name:    "invalid format",
			opts:    Options{Format: "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := NewFormatter(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && formatter == nil {
				t.Error("NewFormatter() returned nil formatter")
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{
			name:   "valid table",
			format: "table",
		},
		{
			name:   "valid yaml",
			format: "yaml",
		},
		{
			name:   "valid json",
			format: "json",
		},
		{
			name:    "invalid format",
			format:  "xml",
			wantErr: true,
		},
		{
			name:    "empty format",
			format:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormat(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"5 seconds", 5 * time.Second, "5s"},
		{"30 seconds", 30 * time.Second, "30s"},
		{"2 minutes", 2 * time.Minute, "2m"},
		{"90 seconds", 90 * time.Second, "1m"},
		{"2 hours", 2 * time.Hour, "2h"},
		{"90 minutes", 90 * time.Minute, "1h"},
		{"2 days", 48 * time.Hour, "2d"},
		{"2 weeks", 14 * 24 * time.Hour, "2w"},
		{"50 days", 50 * 24 * time.Hour, "7w"},
		{"60 days", 60 * 24 * time.Hour, "60d"}, // >= 8 weeks shows as days
		{"400 days", 400 * 24 * time.Hour, "1y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatAge(tt.duration)
			if got != tt.want {
				t.Errorf("formatAge(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}
