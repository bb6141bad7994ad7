package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/nondisposable/internal/domain"
	"github.com/ignite/nondisposable/internal/service/disposable"
)

const disposableDomainsTable = "nondisposable_disposable_domains"

var _ disposable.DomainStore = (*DisposableDomainRepo)(nil)

// DisposableDomainRepo implements disposable.DomainStore against PostgreSQL.
type DisposableDomainRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewDisposableDomainRepo creates a Postgres-backed domain store.
func NewDisposableDomainRepo(db *sql.DB) *DisposableDomainRepo {
	return &DisposableDomainRepo{db: db, now: time.Now}
}

// ReplaceAll deletes every row and COPYs names in, inside one transaction.
// Concurrent readers keep seeing the old rows until commit.
func (r *DisposableDomainRepo) ReplaceAll(ctx context.Context, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+disposableDomainsTable); err != nil {
		return fmt.Errorf("delete domains: %w", err)
	}

	if len(names) > 0 {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(disposableDomainsTable, "name", "created_at", "updated_at"))
		if err != nil {
			return fmt.Errorf("prepare copy: %w", err)
		}
		defer stmt.Close()

		now := r.now()
		for _, name := range names {
			if _, err := stmt.ExecContext(ctx, name, now, now); err != nil {
				return fmt.Errorf("copy domain %q: %w", name, err)
			}
		}
		// Flush
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("flush copy: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (r *DisposableDomainRepo) Contains(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM nondisposable_disposable_domains WHERE lower(name) = lower($1))`,
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("contains domain: %w", err)
	}
	return exists, nil
}

func (r *DisposableDomainRepo) List(ctx context.Context, limit, offset int) ([]domain.DisposableDomain, error) {
	if offset < 0 {
		offset = 0
	}

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, `
			SELECT name, created_at, updated_at
			FROM nondisposable_disposable_domains
			ORDER BY name
			LIMIT $1 OFFSET $2
		`, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT name, created_at, updated_at
			FROM nondisposable_disposable_domains
			ORDER BY name
			OFFSET $1
		`, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	out := []domain.DisposableDomain{}
	for rows.Next() {
		var d domain.DisposableDomain
		if err := rows.Scan(&d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DisposableDomainRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nondisposable_disposable_domains`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count domains: %w", err)
	}
	return n, nil
}
