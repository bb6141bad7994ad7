// Package distlock provides the single-flight lock that keeps concurrent
// blocklist refreshes from interleaving.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Release when the caller does not own the lock.
var ErrNotHeld = errors.New("lock not held")

// Locker is a non-blocking mutual exclusion primitive.
type Locker interface {
	// Acquire tries to take the lock. It returns false, nil when another
	// holder owns it.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock back if we still own it.
	Release(ctx context.Context) error
}

// expiring is implemented by locks that lapse unless extended.
type expiring interface {
	TTL() time.Duration
	Extend(ctx context.Context, ttl time.Duration) error
}

// KeepAlive extends l every third of its TTL until stop is called or ctx
// ends, so holders that outlive the TTL keep ownership. Locks that never
// expire get a no-op. onErr, if set, sees each failed extension.
func KeepAlive(ctx context.Context, l Locker, onErr func(error)) (stop func()) {
	e, ok := l.(expiring)
	if !ok || e.TTL() <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(e.TTL() / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.Extend(ctx, e.TTL()); err != nil && ctx.Err() == nil && onErr != nil {
					onErr(err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// NewLock picks the widest-scoped backend available: Redis for cross-host
// locking, then a PostgreSQL advisory lock, then an in-process mutex.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) Locker {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	if db != nil {
		return NewPGAdvisoryLock(db, key)
	}
	return NewLocalLock()
}

// PGAdvisoryLock implements Locker using pg_try_advisory_lock. Advisory
// locks are session-scoped, so the connection that took the lock is pinned
// until Release and the pool needs at least one more connection for the
// holder's own queries. If the process dies the server drops the session and the
// lock with it.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64

	mu   sync.Mutex
	conn *sql.Conn
}

// NewPGAdvisoryLock derives a stable lock ID from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock conn: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("pg_try_advisory_lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return ErrNotHeld
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return fmt.Errorf("pg_advisory_unlock: %w", err)
	}
	return nil
}

// LocalLock is a process-local Locker for single-instance deployments.
type LocalLock struct {
	mu   sync.Mutex
	held bool
}

func NewLocalLock() *LocalLock { return &LocalLock{} }

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *LocalLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return ErrNotHeld
	}
	l.held = false
	return nil
}
