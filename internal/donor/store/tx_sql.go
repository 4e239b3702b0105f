package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bloodlink/internal/donor/service"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

var _ service.StoreTx = (*SQLTx)(nil)

// SQLTx runs service units of work inside a database/sql transaction.
type SQLTx struct {
	store   *SQLStore
	timeout time.Duration
}

// NewSQLTx constructs a transaction runner for store. A zero timeout uses the
// default.
func NewSQLTx(store *SQLStore, timeout time.Duration) *SQLTx {
	return &SQLTx{store: store, timeout: timeout}
}

func (t *SQLTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store service.Store) error) error {
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

	sqlTx, err := t.store.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx), t.store); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
