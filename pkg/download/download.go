// pkg/download/download.go - HTTP retrieval of zip archives and listing pages.

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// DefaultTimeout bounds one request when no timeout is configured.
const DefaultTimeout = 120 * time.Second

// ErrNetworkUnavailable wraps transport failures. Nothing is retried.
var ErrNetworkUnavailable = errors.New("network unavailable")

// StatusError is returned for a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status code %d for %s", e.StatusCode, e.URL)
}

// Downloader performs plain GET requests.
type Downloader struct {
	Client *http.Client
}

// New returns a Downloader whose requests time out after timeout.
func New(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Downloader{Client: &http.Client{Timeout: timeout}}
}

func (d *Downloader) client() *http.Client {
	if d == nil || d.Client == nil {
		return &http.Client{Timeout: DefaultTimeout}
	}
	return d.Client
}

func (d *Downloader) open(ctx context.Context, url string) (io.ReadCloser, error) {
	if url == "" {
		return nil, fmt.Errorf("invalid parameters: url cannot be empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare HTTP request: %w", err)
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// Get returns the body of url.
func (d *Downloader) Get(ctx context.Context, url string) ([]byte, error) {
	body, err := d.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrNetworkUnavailable, url, err)
	}
	return data, nil
}

// File downloads url into dest, creating parent directories, and returns
// the number of bytes written.
func (d *Downloader) File(ctx context.Context, url, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory structure: %w", err)
	}

	logging.Info("Starting download", "url", url, "destination", dest)
	body, err := d.open(ctx, url)
	if err != nil {
		logging.Error("Download failed", "url", url, "error", err)
		return 0, err
	}
	defer body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to open destination file: %w", err)
	}
	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("%w: writing %s: %v", ErrNetworkUnavailable, dest, err)
	}

	logging.Info("Download completed successfully", "file", dest, "size", humanize.Bytes(uint64(n)))
	return n, nil
}

// All downloads every name → url pair into dir as <name>.zip, in name
// order, and returns the written paths by name. The first failure stops
// the run.
func (d *Downloader) All(ctx context.Context, items map[string]string, dir string) (map[string]string, error) {
	names := make([]string, 0, len(items))
	for n := range items {
		names = append(names, n)
	}
	sort.Strings(names)

	paths := make(map[string]string, len(items))
	for _, name := range names {
		url := items[name]
		if url == "" {
			logging.Warn("Empty URL for download", "name", name)
			continue
		}
		dest := filepath.Join(dir, name+".zip")
		if _, err := d.File(ctx, url, dest); err != nil {
			return paths, fmt.Errorf("failed to download %s: %w", name, err)
		}
		paths[name] = dest
	}
	return paths, nil
}
