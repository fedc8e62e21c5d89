package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/ephemvm/internal/release"
	"github.com/jbweber/ephemvm/internal/status"
)

// JSONFormatter formats resources as JSON.
type JSONFormatter struct{}

// FormatArtifacts formats cached ISOs as a JSON array.
func (f *JSONFormatter) FormatArtifacts(artifacts []release.Artifact) (string, error) {
	if len(artifacts) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifacts to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatStatus formats a session status as a JSON object.
func (f *JSONFormatter) FormatStatus(tracker *status.Tracker) (string, error) {
	if tracker == nil {
		return "", fmt.Errorf("status cannot be nil")
	}

	data, err := json.MarshalIndent(tracker, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
