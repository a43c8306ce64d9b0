// scraper/fetcher.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrFetch marks failures to retrieve upstream bytes; ErrParse marks upstream content that
// could not be decoded.
var (
	ErrFetch = errors.New("upstream fetch failed")
	ErrParse = errors.New("upstream parse failed")
)

const userAgent = "opencovid-api"

// Fetcher performs rate-limited HTTP requests against the upstream hosts. The GitHub API
// allows 60 unauthenticated requests per hour, so the limiter is shared by every source.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher returns a Fetcher with the given per-request timeout and at most perMinute
// requests per minute (0 disables limiting).
func NewFetcher(timeout time.Duration, perMinute int) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second // Sensible timeout for a file download
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 3),
	}
}

func (f *Fetcher) do(ctx context.Context, method, url string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %w", ErrFetch, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %w", ErrFetch, url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrFetch, method, url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s: received status code %d", ErrFetch, method, url, resp.StatusCode)
	}
	return resp, nil
}

// Get downloads url and returns its body and response headers.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, http.Header, error) {
	slog.Debug("Downloading", "url", url)
	resp, err := f.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read body of %s: %w", ErrFetch, url, err)
	}
	return body, resp.Header, nil
}

// LastModified returns the Last-Modified header of url without downloading the body.
func (f *Fetcher) LastModified(ctx context.Context, url string) (string, error) {
	resp, err := f.do(ctx, http.MethodHead, url)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return lastModified(url, resp.Header)
}

func lastModified(url string, h http.Header) (string, error) {
	v := h.Get("Last-Modified")
	if v == "" {
		return "", fmt.Errorf("%w: %s has no Last-Modified header", ErrFetch, url)
	}
	return v, nil
}
