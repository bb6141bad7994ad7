package disposable

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/nondisposable/internal/blocklist"
	"github.com/ignite/nondisposable/internal/metrics"
	"github.com/ignite/nondisposable/internal/pkg/distlock"
	"github.com/ignite/nondisposable/internal/pkg/logger"
)

// Result describes a completed refresh.
type Result struct {
	RunID    string        `json:"run_id"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"duration"`
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithURL sets the blocklist source. Defaults to the upstream GitHub list.
func WithURL(url string) UpdaterOption {
	return func(u *Updater) { u.url = url }
}

// WithLocker makes concurrent Update calls mutually exclusive.
func WithLocker(l distlock.Locker) UpdaterOption {
	return func(u *Updater) { u.lock = l }
}

// WithMetrics records refresh outcomes on m.
func WithMetrics(m *metrics.Metrics) UpdaterOption {
	return func(u *Updater) { u.metrics = m }
}

// WithLogger overrides the package default logger.
func WithLogger(l *logger.Logger) UpdaterOption {
	return func(u *Updater) { u.log = l }
}

// Updater refreshes the DomainStore from the upstream blocklist.
type Updater struct {
	store   DomainStore
	fetcher blocklist.Fetcher
	rules   *RulesHolder
	url     string
	lock    distlock.Locker
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewUpdater creates an updater. Without WithLocker, concurrent calls are
// not coordinated and the last ReplaceAll wins.
func NewUpdater(store DomainStore, fetcher blocklist.Fetcher, rules *RulesHolder, opts ...UpdaterOption) *Updater {
	u := &Updater{
		store:   store,
		fetcher: fetcher,
		rules:   rules,
		url:     blocklist.DefaultURL,
		log:     logger.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Update fetches, parses and merges the blocklist, then replaces the store.
// Any failure leaves the store as it was.
func (u *Updater) Update(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.New().String()}
	start := u.now()

	if u.lock != nil {
		ok, err := u.lock.Acquire(ctx)
		if err != nil {
			u.metrics.IncrementRefresh(metrics.ResultStoreError)
			u.log.Error("refresh lock failed", "run_id", res.RunID, "error", err)
			return res, fmt.Errorf("acquire refresh lock: %w", err)
		}
		if !ok {
			u.metrics.IncrementRefresh(metrics.ResultLocked)
			u.log.Info("refresh skipped, lock held elsewhere", "run_id", res.RunID)
			return res, ErrRefreshInProgress
		}
		defer func() {
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := u.lock.Release(relCtx); err != nil {
				u.log.Warn("refresh lock release failed", "run_id", res.RunID, "error", err)
			}
		}()

		stop := distlock.KeepAlive(ctx, u.lock, func(err error) {
			u.log.Warn("refresh lock extend failed", "run_id", res.RunID, "error", err)
		})
		defer stop()
	}

	body, err := u.fetcher.Fetch(ctx, u.url)
	if err != nil {
		u.metrics.IncrementRefresh(metrics.ResultFetchError)
		u.log.Error("blocklist fetch failed", "run_id", res.RunID, "op", "fetch", "url", u.url, "error", err)
		return res, fmt.Errorf("fetch blocklist: %w", err)
	}

	parsed, err := blocklist.Parse(body)
	if err != nil {
		u.metrics.IncrementRefresh(metrics.ResultEmptyList)
		u.log.Error("blocklist parse failed", "run_id", res.RunID, "op", "parse", "url", u.url, "error", err)
		return res, fmt.Errorf("parse blocklist: %w", err)
	}

	rules := u.rules.Load()
	final := Merge(parsed, rules.AdditionalDomains, rules.ExcludedDomains)

	if err := u.store.ReplaceAll(ctx, final); err != nil {
		u.metrics.IncrementRefresh(metrics.ResultStoreError)
		u.log.Error("domain store replace failed", "run_id", res.RunID, "op", "replace_all", "error", err)
		return res, &StorageError{Op: "replace_all", Err: err}
	}

	res.Count = len(final)
	res.Duration = u.now().Sub(start)
	u.metrics.IncrementRefresh(metrics.ResultSuccess)
	u.metrics.ObserveRefresh(res.Count, res.Duration)
	u.log.Info("blocklist refreshed",
		"run_id", res.RunID,
		"fetched", len(parsed),
		"stored", res.Count,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// UpdateOK runs Update and reports only whether it succeeded.
func (u *Updater) UpdateOK(ctx context.Context) bool {
	_, err := u.Update(ctx)
	return err == nil
}

// Merge computes (normalized ∪ lower(additional)) − lower(excluded), sorted.
func Merge(normalized, additional, excluded []string) []string {
	set := make(map[string]struct{}, len(normalized)+len(additional))
	for _, list := range [][]string{normalized, additional} {
		for _, d := range list {
			if strings.TrimSpace(d) == "" {
				continue
			}
			set[strings.ToLower(d)] = struct{}{}
		}
	}
	for _, d := range excluded {
		delete(set, strings.ToLower(d))
	}

	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// IsFetchFailure reports whether err came from retrieving or parsing the
// upstream list rather than from storage or locking.
func IsFetchFailure(err error) bool {
	var fe *blocklist.FetchError
	return errors.As(err, &fe) || errors.Is(err, blocklist.ErrEmptyList)
}
