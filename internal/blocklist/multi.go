package blocklist

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// MultiFetcher routes a URL to a Fetcher by scheme ("http", "https", "s3").
type MultiFetcher struct {
	bySchema map[string]Fetcher
}

// NewMultiFetcher registers httpFetcher for http/https and s3Fetcher for s3.
// Either may be nil, in which case that scheme is rejected.
func NewMultiFetcher(httpFetcher, s3Fetcher Fetcher) *MultiFetcher {
	m := &MultiFetcher{bySchema: make(map[string]Fetcher)}
	if httpFetcher != nil {
		m.bySchema["http"] = httpFetcher
		m.bySchema["https"] = httpFetcher
	}
	if s3Fetcher != nil {
		m.bySchema["s3"] = s3Fetcher
	}
	return m
}

// Fetch implements Fetcher.
func (m *MultiFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}
	f, ok := m.bySchema[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)}
	}
	return f.Fetch(ctx, rawURL)
}
