package blocklist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/nondisposable/internal/pkg/httpretry"
	"github.com/ignite/nondisposable/internal/pkg/logger"
)

// DefaultURL is the community-maintained list of disposable domains.
const DefaultURL = "https://raw.githubusercontent.com/disposable-email-domains/disposable-email-domains/master/disposable_email_blocklist.conf"

// Fetcher retrieves the raw blocklist body from a source.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcherConfig controls HTTPFetcher.
type HTTPFetcherConfig struct {
	Timeout      time.Duration // bounds the whole request; 0 means 30s
	MaxRetries   int           // retries on 429/5xx and transport errors; 0 disables
	MaxBodyBytes int64         // larger bodies fail as network errors; 0 means 16 MiB
	UserAgent    string
}

// HTTPFetcher performs a single GET per Fetch call.
type HTTPFetcher struct {
	doer         httpretry.HTTPDoer
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
}

// NewHTTPFetcher builds a fetcher. client may be nil.
func NewHTTPFetcher(client *http.Client, cfg HTTPFetcherConfig, log *logger.Logger) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 16 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "nondisposable/1.0"
	}
	if log == nil {
		log = logger.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var doer httpretry.HTTPDoer = client
	if cfg.MaxRetries > 0 {
		doer = httpretry.NewRetryClient(client, cfg.MaxRetries, httpretry.WithLogger(log))
	}

	return &HTTPFetcher{
		doer:         doer,
		timeout:      cfg.Timeout,
		maxBodyBytes: cfg.MaxBodyBytes,
		userAgent:    cfg.UserAgent,
	}
}

// Fetch implements Fetcher. Any 2xx status is a success.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain")

	resp, err := f.doer.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{Kind: KindHTTPStatus, URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("body exceeds %d bytes", f.maxBodyBytes)}
	}
	return body, nil
}
