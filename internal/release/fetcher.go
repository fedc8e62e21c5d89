package release

import (
	"context"
	"crypto/md5"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/jbweber/ephemvm/internal/logger"
)

const (
	// absentChecksum stands in for the checksum of a manifest never fetched.
	absentChecksum = "ABSENT"

	// chunkSize is the read size used while streaming the ISO.
	chunkSize = 8192

	// partSuffix marks an ISO download that has not been renamed into place.
	partSuffix = ".part"
)

// Fetcher keeps a local cache of installer ISOs up to date.
//
// It assumes a single writer: concurrent Fetch calls for the same Identity
// race on the same files.
type Fetcher struct {
	client      *http.Client
	cacheRoot   string
	mirror      string
	progressOut io.Writer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMirror overrides the cdimage mirror base URL.
func WithMirror(mirror string) Option {
	return func(f *Fetcher) { f.mirror = mirror }
}

// WithProgressOutput renders a progress bar for ISO downloads on w.
func WithProgressOutput(w io.Writer) Option {
	return func(f *Fetcher) { f.progressOut = w }
}

// NewFetcher creates a Fetcher rooted at cacheRoot.
func NewFetcher(cacheRoot string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    NewSecureHTTPClient(),
		cacheRoot: cacheRoot,
		mirror:    DefaultMirror,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewSecureHTTPClient returns an http.Client that refuses TLS below 1.2 and
// honors the usual proxy environment variables.
func NewSecureHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2: true,
	}
	return &http.Client{Transport: transport}
}

// Fetch makes sure the ISO for id is cached locally and current, and returns
// its path.
//
// The remote manifest is downloaded on every call and always overwrites the
// local copy. The ISO is downloaded only when it is missing or the manifest
// content changed since the previous call. When that download fails the local
// manifest is removed, so the next call starts from ABSENT.
func (f *Fetcher) Fetch(ctx context.Context, id Identity) (string, error) {
	log := logger.Logger()

	if err := id.Validate(); err != nil {
		return "", fmt.Errorf("invalid artifact identity: %w", err)
	}

	paths := id.Paths(f.cacheRoot)
	urls := id.URLs(f.mirror)

	if err := os.MkdirAll(paths.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory %s: %w", paths.Dir, err)
	}

	// Must be computed before the manifest is overwritten below.
	previous, err := fileChecksum(paths.Manifest)
	if err != nil {
		return "", err
	}

	if err := f.refreshManifest(ctx, urls.Manifest, paths.Manifest); err != nil {
		return "", err
	}

	if isRegularFile(paths.ISO) {
		log.Infof("Checking checksum of %s for stale local ISO", paths.Manifest)
		current, err := fileChecksum(paths.Manifest)
		if err != nil {
			return "", err
		}
		if current == previous {
			log.Infof("Using cached %s, no manifest changes", paths.ISO)
			return paths.ISO, nil
		}
		log.Infof("Manifest for %s changed, refreshing cached ISO", id)
	}

	log.Infof("Downloading %s...", urls.ISO)
	if err := f.download(ctx, urls.ISO, paths.ISO); err != nil {
		// A refreshed manifest next to an older ISO would pass the next
		// staleness check. Dropping it forces a download on the next call.
		if rmErr := os.Remove(paths.Manifest); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warnf("Failed to remove manifest %s after failed download: %v", paths.Manifest, rmErr)
		}
		return "", err
	}

	return paths.ISO, nil
}

// refreshManifest overwrites dest with the body served at url.
//
// The response status is deliberately not checked: whatever body the mirror
// returns (including an error page) becomes the new manifest, and the
// checksum comparison treats it as any other content change.
func (f *Fetcher) refreshManifest(ctx context.Context, url, dest string) error {
	log := logger.Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warnf("Manifest request %s returned %s; storing response body as manifest", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{URL: url, Written: int64(len(body)), Err: err}
	}

	if err := os.WriteFile(dest, body, 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", dest, err)
	}

	return nil
}

// download streams url into dest via a temporary file that is renamed into
// place only after the full body has been written and synced.
func (f *Fetcher) download(ctx context.Context, url, dest string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	tmpPath := dest + partSuffix
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	progress := newProgress(resp.ContentLength, f.progressOut)
	defer func() {
		if err != nil {
			progress.Abort()
			return
		}
		progress.Finish()
	}()

	written, err := copyChunks(out, resp.Body, progress)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			te.URL = url
		}
		return err
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return &TransportError{
			URL:     url,
			Written: written,
			Err:     fmt.Errorf("expected %d bytes: %w", resp.ContentLength, io.ErrUnexpectedEOF),
		}
	}

	if err := out.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	return nil
}

// copyChunks copies src to dst in chunkSize reads, reporting each chunk.
// Read failures are TransportErrors; write failures are local I/O errors.
func copyChunks(dst io.Writer, src io.Reader, progress *progress) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("failed to write download chunk: %w", err)
			}
			written += int64(n)
			progress.Add(n)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, &TransportError{Written: written, Err: readErr}
		}
	}
}

// fileChecksum returns the hex MD5 of path, or absentChecksum when path does
// not exist.
func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return absentChecksum, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
