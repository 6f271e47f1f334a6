package repo

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
)

// WithinLock opens a transaction, takes a transaction-scoped advisory lock per
// key and runs fn against a repo bound to that transaction.
//
// Keys are locked in sorted order so two callers asking for overlapping key
// sets can never deadlock. The locks are released by Postgres when the
// transaction ends; the deferred Rollback guarantees that happens on every
// path that does not reach Commit.
func (s *pgBookingStore) WithinLock(ctx context.Context, keys []string, fn func(ctx context.Context, r BookingRepo) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.BookingStore.WithinLock: begin: %w", err)
	}
	defer func() {
		// No-op after a successful Commit.
		_ = tx.Rollback(ctx)
	}()

	for _, key := range lockOrder(keys) {
		const q = `SELECT pg_advisory_xact_lock(hashtextextended(@key, 0))`
		if _, err := tx.Exec(ctx, q, pgx.NamedArgs{"key": key}); err != nil {
			return fmt.Errorf("repo.BookingStore.WithinLock: lock %q: %w", key, err)
		}
	}

	if err := fn(ctx, &pgBookingRepo{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.BookingStore.WithinLock: commit: %w", translateConstraint(err))
	}
	return nil
}

// lockOrder returns the distinct keys in ascending order.
func lockOrder(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}
