package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/ephemvm/internal/release"
	"github.com/jbweber/ephemvm/internal/status"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatArtifacts formats cached ISOs as a YAML stream
// (one document per artifact, separated by ---).
func (f *YAMLFormatter) FormatArtifacts(artifacts []release.Artifact) (string, error) {
	if len(artifacts) == 0 {
		return "", nil
	}

	var buf bytes.Buffer

	for i, a := range artifacts {
		data, err := yaml.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("failed to marshal artifact %s to YAML: %w", a.Name, err)
		}

		// Add document separator between artifacts (but not before the first one)
		if i > 0 {
			buf.WriteString("---\n")
		}

		buf.Write(data)
	}

	return buf.String(), nil
}

// FormatStatus formats a session status as YAML.
func (f *YAMLFormatter) FormatStatus(tracker *status.Tracker) (string, error) {
	if tracker == nil {
		return "", fmt.Errorf("status cannot be nil")
	}

	data, err := yaml.Marshal(tracker)
	if err != nil {
		return "", fmt.Errorf("failed to marshal status to YAML: %w", err)
	}

	return string(data), nil
}
