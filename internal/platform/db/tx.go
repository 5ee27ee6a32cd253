package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner opens transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx executes fn inside a transaction using the supplied options. The
// transaction is rolled back on every path that does not reach Commit.
func WithTx(ctx context.Context, db Beginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// ReadCommitted is used for short row-locking transactions: a waiter on a
// FOR UPDATE lock re-reads the committed row instead of failing.
var ReadCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
