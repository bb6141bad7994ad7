package disposable

import (
	"context"

	"github.com/ignite/nondisposable/internal/domain"
)

// DomainStore defines the persistence contract for the blocklist.
type DomainStore interface {
	// ReplaceAll swaps the whole set for names. Readers observe either the
	// old set or the new one, never a mix. On error the old set remains.
	// Names are expected lowercase and unique.
	ReplaceAll(ctx context.Context, names []string) error

	// Contains reports whether name is stored. Matching is case-insensitive.
	Contains(ctx context.Context, name string) (bool, error)

	// List returns entries ordered by name.
	List(ctx context.Context, limit, offset int) ([]domain.DisposableDomain, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
}
