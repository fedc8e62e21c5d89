package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jbweber/ephemvm/internal/release"
	"github.com/jbweber/ephemvm/internal/status"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatArtifacts formats cached ISOs as a table.
func (f *TableFormatter) FormatArtifacts(artifacts []release.Artifact) (string, error) {
	if len(artifacts) == 0 {
		return "No cached ISOs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tRELEASE\tSIZE\tVALID\tMANIFEST\tAGE")
	}

	for _, a := range artifacts {
		manifest := "-"
		if a.HasManifest() {
			manifest = a.ManifestChecksum
			if len(manifest) > 12 {
				manifest = manifest[:12]
			}
		}

		age := "-"
		if !a.ModTime.IsZero() {
			age = formatAge(time.Since(a.ModTime))
		}

		valid := "no"
		if a.Valid {
			valid = "yes"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f GiB\t%s\t%s\t%s\n",
			a.Name, a.Release, a.SizeGB(), valid, manifest, age)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatStatus formats a session status as a phase line and a condition table.
func (f *TableFormatter) FormatStatus(tracker *status.Tracker) (string, error) {
	if tracker == nil {
		return "", fmt.Errorf("status cannot be nil")
	}

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Phase: %s\n", tracker.Phase)
	if len(tracker.Conditions) == 0 {
		return buf.String(), nil
	}

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "CONDITION\tSTATUS\tREASON\tMESSAGE")
	}
	for _, c := range tracker.Conditions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Type, c.Status, c.Reason, c.Message)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// formatAge formats a duration as a human-readable age string.
// Examples: "5s", "2m", "3h", "4d", "2w", "1y"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())

	// Less than 1 minute
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	// Less than 1 hour
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	// Less than 1 day
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	// Less than 1 week
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}

	weeks := days / 7
	// Less than ~2 months (8 weeks)
	if weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}

	years := days / 365
	if years > 0 {
		return fmt.Sprintf("%dy", years)
	}

	return fmt.Sprintf("%dd", days)
}
