// Package memory provides an in-process DomainStore for single-instance
// deployments and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ignite/nondisposable/internal/domain"
	"github.com/ignite/nondisposable/internal/service/disposable"
)

var (
	ErrEmptyName     = errors.New("domain name is empty")
	ErrDuplicateName = errors.New("duplicate domain name")
)

var _ disposable.DomainStore = (*DomainStore)(nil)

type snapshot struct {
	index  map[string]struct{}
	sorted []domain.DisposableDomain
}

// DomainStore keeps the blocklist in an immutable snapshot. Writers build a
// complete replacement and publish it with a single pointer swap, so a
// reader sees either the old set or the new one.
type DomainStore struct {
	value atomic.Pointer[snapshot]
	now   func() time.Time
}

// NewDomainStore returns an empty store.
func NewDomainStore() *DomainStore {
	s := &DomainStore{now: time.Now}
	s.value.Store(&snapshot{index: map[string]struct{}{}})
	return s
}

func (s *DomainStore) ReplaceAll(ctx context.Context, names []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next, err := build(names, s.now())
	if err != nil {
		return err
	}
	s.value.Store(next)
	return nil
}

// Seed adds names to the current set, keeping existing entries.
func (s *DomainStore) Seed(names ...string) error {
	for {
		old := s.value.Load()
		merged := make([]string, 0, len(old.sorted)+len(names))
		for _, d := range old.sorted {
			merged = append(merged, d.Name)
		}
		for _, n := range names {
			if _, ok := old.index[strings.ToLower(n)]; !ok {
				merged = append(merged, n)
			}
		}
		next, err := build(merged, s.now())
		if err != nil {
			return err
		}
		if s.value.CompareAndSwap(old, next) {
			return nil
		}
	}
}

func (s *DomainStore) Contains(_ context.Context, name string) (bool, error) {
	_, ok := s.value.Load().index[strings.ToLower(name)]
	return ok, nil
}

func (s *DomainStore) List(_ context.Context, limit, offset int) ([]domain.DisposableDomain, error) {
	all := s.value.Load().sorted
	if offset < 0 {
		offset = 0
	}
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]domain.DisposableDomain, len(all))
	copy(out, all)
	return out, nil
}

func (s *DomainStore) Count(context.Context) (int, error) {
	return len(s.value.Load().sorted), nil
}

func build(names []string, now time.Time) (*snapshot, error) {
	snap := &snapshot{
		index:  make(map[string]struct{}, len(names)),
		sorted: make([]domain.DisposableDomain, 0, len(names)),
	}
	for _, n := range names {
		if n == "" {
			return nil, ErrEmptyName
		}
		key := strings.ToLower(n)
		if _, dup := snap.index[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, n)
		}
		snap.index[key] = struct{}{}
		snap.sorted = append(snap.sorted, domain.DisposableDomain{Name: key, CreatedAt: now, UpdatedAt: now})
	}
	sort.Slice(snap.sorted, func(i, j int) bool { return snap.sorted[i].Name < snap.sorted[j].Name })
	return snap, nil
}
