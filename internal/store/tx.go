package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the common interface implemented by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txCtxKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

// QuerierFromCtx returns the transaction from context if present,
// otherwise returns the pool.
func QuerierFromCtx(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txCtxKey{}).(pgx.Tx)
	return ok
}

// TxManager runs callbacks inside database transactions. The transaction is
// carried in the callback's context; repositories pick it up via QuerierFromCtx.
// Nested RunInTx calls are not supported.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// RunInTx executes fn within a transaction using opts.
// On success: commits. On error from fn: rolls back and returns the error
// unchanged. On panic: rolls back and re-panics. Rollback runs even when ctx
// has already been cancelled.
func (m *TxManager) RunInTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fmt.Errorf("begin transaction: nested transactions are not supported")
	}

	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	rollbackCtx := context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(rollbackCtx)
			panic(r)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(rollbackCtx); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SetLockTimeout bounds how long statements in the current transaction wait
// for row locks. Exceeding it fails with SQLSTATE 55P03. A zero duration
// leaves the server default in place.
func SetLockTimeout(ctx context.Context, d time.Duration) error {
	tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx)
	if !ok {
		return fmt.Errorf("set lock timeout: no transaction in context")
	}
	if d <= 0 {
		return nil
	}
	// SET does not accept bind parameters; set_config with is_local does.
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", d.Milliseconds())); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}
	return nil
}
