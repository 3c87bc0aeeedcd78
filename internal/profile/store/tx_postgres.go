package store

import (
	"context"
	"database/sql"
	"time"

	"beneficiary/internal/profile/ports"
	dErrors "beneficiary/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// PostgresUnitOfWork runs profile writes in a single database transaction.
type PostgresUnitOfWork struct {
	db      *sql.DB
	timeout time.Duration
	opts    []Option
}

// NewPostgresUnitOfWork returns a unit of work over db. opts are applied to the
// transaction-bound store handed to each callback.
func NewPostgresUnitOfWork(db *sql.DB, timeout time.Duration, opts ...Option) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{db: db, timeout: timeout, opts: opts}
}

func (t *PostgresUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, w ports.ProfileWriter) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	if err := fn(ctx, NewPostgresTx(tx, t.opts...)); err != nil {
		return err
	}

	return tx.Commit()
}
