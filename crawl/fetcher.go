package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrHTTPStatus marks a non-2xx response. These are never retried; the page
// is dropped and the crawl moves on.
var ErrHTTPStatus = errors.New("http error status")

// retryBaseDelay is the first backoff interval; it doubles per attempt.
const retryBaseDelay = 500 * time.Millisecond

// FetchResult is one successful HTTP response.
type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
}

// IsHTML reports whether the response declared an HTML content type.
func (r *FetchResult) IsHTML() bool {
	ct := strings.ToLower(r.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// IsPDF reports whether the response declared a PDF content type.
func (r *FetchResult) IsPDF() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "application/pdf")
}

// Fetcher performs sequential HTTP GETs with bounded retries. Network-level
// failures back off exponentially; HTTP error statuses fail immediately.
type Fetcher struct {
	client     *http.Client
	agent      string
	maxRetries int
	maxBytes   int64
	logger     *slog.Logger
}

// NewFetcher builds a Fetcher from run configuration.
func NewFetcher(cfg Config) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: cfg.FetchTimeout},
		agent:      cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		maxBytes:   cfg.MaxBodyBytes,
		logger:     cfg.Logger,
	}
}

// Fetch GETs one URL. On network error it retries up to the configured
// attempts with exponential backoff; on a non-2xx status it returns
// ErrHTTPStatus without retrying.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			f.logger.Debug("fetch retry", "url", rawURL, "attempt", attempt, "backoff", delay)
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		res, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, ErrHTTPStatus) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w", rawURL, f.maxRetries+1, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.agent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d for %s", ErrHTTPStatus, resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FetchedAt:   time.Now().UTC(),
	}, nil
}
