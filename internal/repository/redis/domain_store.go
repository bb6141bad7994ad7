// Package redis provides a DomainStore backed by a Redis sorted set, for
// deployments that share one blocklist across several API instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ignite/nondisposable/internal/domain"
	"github.com/ignite/nondisposable/internal/service/disposable"
)

const batchSize = 1000

var _ disposable.DomainStore = (*DomainStore)(nil)

// DomainStore keeps names in a sorted set where every score is zero, so
// ZRANGE returns them in lexical order. Replacement stages a new set under a
// temporary key and RENAMEs it over the live one.
type DomainStore struct {
	client *goredis.Client
	key    string
	now    func() time.Time
}

// NewDomainStore stores the set under key and its write timestamp under
// key + ":updated_at".
func NewDomainStore(client *goredis.Client, key string) *DomainStore {
	return &DomainStore{client: client, key: key, now: time.Now}
}

func (s *DomainStore) updatedAtKey() string { return s.key + ":updated_at" }

func (s *DomainStore) ReplaceAll(ctx context.Context, names []string) error {
	now := s.now().UTC().Format(time.RFC3339Nano)

	if len(names) == 0 {
		_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, s.key)
			pipe.Set(ctx, s.updatedAtKey(), now, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("clear domains: %w", err)
		}
		return nil
	}

	staging := fmt.Sprintf("%s:staging:%s", s.key, uuid.New().String())

	if err := s.stage(ctx, staging, names); err != nil {
		s.discard(ctx, staging)
		return fmt.Errorf("stage domains: %w", err)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Rename(ctx, staging, s.key)
		pipe.Persist(ctx, s.key)
		pipe.Set(ctx, s.updatedAtKey(), now, 0)
		return nil
	})
	if err != nil {
		s.discard(ctx, staging)
		return fmt.Errorf("swap domains: %w", err)
	}
	return nil
}

func (s *DomainStore) stage(ctx context.Context, staging string, names []string) error {
	for _, n := range names {
		if n == "" {
			return errors.New("domain name is empty")
		}
	}

	pipe := s.client.Pipeline()
	for start := 0; start < len(names); start += batchSize {
		end := start + batchSize
		if end > len(names) {
			end = len(names)
		}
		members := make([]goredis.Z, 0, end-start)
		for _, n := range names[start:end] {
			members = append(members, goredis.Z{Score: 0, Member: strings.ToLower(n)})
		}
		pipe.ZAdd(ctx, staging, members...)
	}
	// Staged keys expire on their own if the process dies before the swap.
	pipe.Expire(ctx, staging, time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *DomainStore) discard(ctx context.Context, staging string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.client.Del(ctx, staging)
}

func (s *DomainStore) Contains(ctx context.Context, name string) (bool, error) {
	err := s.client.ZScore(ctx, s.key, strings.ToLower(name)).Err()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("contains domain: %w", err)
	}
	return true, nil
}

func (s *DomainStore) List(ctx context.Context, limit, offset int) ([]domain.DisposableDomain, error) {
	if offset < 0 {
		offset = 0
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}

	names, err := s.client.ZRange(ctx, s.key, int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}

	var ts time.Time
	if raw, err := s.client.Get(ctx, s.updatedAtKey()).Result(); err == nil {
		ts, _ = time.Parse(time.RFC3339Nano, raw)
	}

	out := make([]domain.DisposableDomain, 0, len(names))
	for _, n := range names {
		out = append(out, domain.DisposableDomain{Name: n, CreatedAt: ts, UpdatedAt: ts})
	}
	return out, nil
}

func (s *DomainStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count domains: %w", err)
	}
	return int(n), nil
}
