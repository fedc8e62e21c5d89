package release

import "fmt"

// NetworkError is returned when the remote host cannot be reached.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to reach %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is returned when the ISO download answers with a non-success
// status before any bytes are streamed.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("download failed: %s (URL: %s)", e.Status, e.URL)
}

// TransportError is returned when a download stream breaks or ends short.
type TransportError struct {
	URL     string
	Written int64
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("download of %s interrupted after %d bytes: %v", e.URL, e.Written, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
