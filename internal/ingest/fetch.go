package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/eurometrics/internal/logging"
)

// MaxResponseSize bounds a single agency response (64MB).
const MaxResponseSize = 64 << 20

// Fetcher downloads agency responses. When ArchiveDir is set, every raw
// response is also written there before parsing.
type Fetcher struct {
	Client     *http.Client
	ArchiveDir string
	UserAgent  string
}

// NewFetcher creates a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration, archiveDir string) *Fetcher {
	return &Fetcher{
		Client:     &http.Client{Timeout: timeout},
		ArchiveDir: archiveDir,
		UserAgent:  "eurometrics-ingest/1.0",
	}
}

// Get fetches url and returns the cleaned body. Any non-2xx status is an
// error; there is no retry.
func (f *Fetcher) Get(ctx context.Context, name, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	logger := logging.WithFields(ctx, "fetch", name)
	start := time.Now()
	logger.Info("fetch started", "url", url)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("read %s: response exceeds %d bytes", url, MaxResponseSize)
	}

	if err := f.archive(name, body); err != nil {
		return nil, err
	}

	logger.Info("fetch complete",
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return cleanBody(body), nil
}

func (f *Fetcher) archive(name string, body []byte) error {
	if f.ArchiveDir == "" {
		return nil
	}
	if err := os.MkdirAll(f.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("archive dir: %w", err)
	}
	path := filepath.Join(f.ArchiveDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	return nil
}
