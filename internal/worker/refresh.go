package worker

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/ignite/nondisposable/internal/service/disposable"
)

// =============================================================================
// DOMAIN REFRESH WORKER: keeps the disposable domain store current
// =============================================================================
// Runs the Updater once on start and then every interval. A failed refresh
// is retried with exponential backoff (±20% jitter) instead of waiting a
// full interval; a refresh skipped because another instance holds the lock
// counts as done.

const (
	DefaultRefreshInterval = 24 * time.Hour
	DefaultInitialBackoff  = 30 * time.Second
	DefaultMaxBackoff      = 30 * time.Minute
)

// Refresher is the part of disposable.Updater the worker drives.
type Refresher interface {
	Update(ctx context.Context) (disposable.Result, error)
}

// RefreshConfig controls RefreshWorker timing.
type RefreshConfig struct {
	Interval       time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	SkipInitial    bool
}

// RefreshWorker periodically refreshes the blocklist.
type RefreshWorker struct {
	refresher Refresher
	cfg       RefreshConfig
}

// NewRefreshWorker creates a worker, filling zero config values with defaults.
func NewRefreshWorker(r Refresher, cfg RefreshConfig) *RefreshWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	return &RefreshWorker{refresher: r, cfg: cfg}
}

// Start runs the refresh loop. It blocks until ctx is cancelled.
func (w *RefreshWorker) Start(ctx context.Context) {
	log.Printf("[DomainRefresh] Starting (interval=%s, backoff=%s..%s)",
		w.cfg.Interval, w.cfg.InitialBackoff, w.cfg.MaxBackoff)

	failures := 0
	next := time.Duration(0)
	if w.cfg.SkipInitial {
		next = w.cfg.Interval
	}

	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[DomainRefresh] Stopping")
			return
		case <-timer.C:
		}

		if w.runOnce(ctx) {
			if failures > 0 {
				log.Printf("[DomainRefresh] Recovered after %d failures", failures)
			}
			failures = 0
			next = w.cfg.Interval
		} else {
			if ctx.Err() != nil {
				log.Println("[DomainRefresh] Stopping")
				return
			}
			failures++
			next = calcBackoff(w.cfg.InitialBackoff, w.cfg.MaxBackoff, failures)
			log.Printf("[DomainRefresh] Refresh failed (attempt #%d), retrying in %s",
				failures, next.Round(time.Millisecond))
		}
		timer.Reset(next)
	}
}

func (w *RefreshWorker) runOnce(ctx context.Context) bool {
	res, err := w.refresher.Update(ctx)
	switch {
	case err == nil:
		log.Printf("[DomainRefresh] Refreshed %d domains in %s (run=%s)",
			res.Count, res.Duration.Round(time.Millisecond), res.RunID)
		return true
	case errors.Is(err, disposable.ErrRefreshInProgress):
		log.Println("[DomainRefresh] Another refresh holds the lock, skipping")
		return true
	default:
		log.Printf("[DomainRefresh] Error: %v", err)
		return false
	}
}

func calcBackoff(initial, max time.Duration, failures int) time.Duration {
	pow := math.Pow(2, float64(failures-1))
	backoff := time.Duration(float64(initial) * pow)
	if backoff > max || backoff <= 0 {
		backoff = max
	}

	jitterFrac := 0.2
	jitter := time.Duration(rand.Float64()*2*jitterFrac*float64(backoff)) -
		time.Duration(jitterFrac*float64(backoff))

	return backoff + jitter
}
