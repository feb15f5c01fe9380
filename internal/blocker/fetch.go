package blocker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Fetcher downloads one filter list.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchConfig bounds list downloads.
type FetchConfig struct {
	Timeout  time.Duration
	Retries  int
	MaxBytes int64
}

// HTTPFetcher downloads lists with per-attempt timeouts and bounded retries.
type HTTPFetcher struct {
	client   *retryablehttp.Client
	maxBytes int64
}

// NewHTTPFetcher builds a fetcher. base may be nil to use a default
// transport; it is copied, not modified.
func NewHTTPFetcher(cfg FetchConfig, base *http.Client) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 32 << 20
	}

	client := retryablehttp.NewClient()
	if base != nil {
		c := *base
		client.HTTPClient = &c
	}
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = slog.Default()

	return &HTTPFetcher{client: client, maxBytes: cfg.MaxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: list exceeds %d bytes", url, f.maxBytes)
	}
	return data, nil
}
