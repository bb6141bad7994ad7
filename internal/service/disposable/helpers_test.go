package disposable_test

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ignite/nondisposable/internal/blocklist"
	"github.com/ignite/nondisposable/internal/domain"
	"github.com/ignite/nondisposable/internal/pkg/logger"
)

// fakeStore is an in-memory DomainStore with failure injection.
type fakeStore struct {
	mu          sync.RWMutex
	names       map[string]struct{}
	replaceErr  error
	containsErr error
	replaces    int
}

func newFakeStore(names ...string) *fakeStore {
	s := &fakeStore{names: make(map[string]struct{})}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

func (s *fakeStore) ReplaceAll(_ context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaces++
	if s.replaceErr != nil {
		return s.replaceErr
	}
	next := make(map[string]struct{}, len(names))
	for _, n := range names {
		next[n] = struct{}{}
	}
	s.names = next
	return nil
}

func (s *fakeStore) Contains(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.containsErr != nil {
		return false, s.containsErr
	}
	_, ok := s.names[strings.ToLower(name)]
	return ok, nil
}

func (s *fakeStore) List(_ context.Context, limit, offset int) ([]domain.DisposableDomain, error) {
	all := s.snapshot()
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]domain.DisposableDomain, 0, len(all))
	for _, n := range all {
		out = append(out, domain.DisposableDomain{Name: n})
	}
	return out, nil
}

func (s *fakeStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names), nil
}

func (s *fakeStore) snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// fakeFetcher returns a canned body or error.
type fakeFetcher struct {
	body    string
	err     error
	calls   int
	entered chan struct{}
	block   chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	f.calls++
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func statusErr(code int) error {
	return &blocklist.FetchError{Kind: blocklist.KindHTTPStatus, URL: "https://example.test/list", Code: code}
}

func networkErr() error {
	return &blocklist.FetchError{Kind: blocklist.KindNetwork, URL: "https://example.test/list", Err: errors.New("connection refused")}
}

func quietLogger() (*logger.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logger.New(buf, logger.DEBUG), buf
}
