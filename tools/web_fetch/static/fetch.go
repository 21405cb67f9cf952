package static

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 10 << 20
)

// Fetch performs a single GET with a browser-like User-Agent. Anything other
// than 200 is an error; there are no retries.
type Fetch struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
}

func (f Fetch) Fetch(ctx context.Context, url string) (string, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	max := f.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	body, err := helpers.ReadAllAndClose(resp.Body, max)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}
