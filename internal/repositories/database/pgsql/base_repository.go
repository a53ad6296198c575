package pgsql

import (
	"context"
	"errors"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is the query surface shared by the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type txCtxKey struct{}

func txFromCtx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx)
	return tx, ok
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// conn returns the transaction bound to ctx, or the pool.
func (r *BaseRepository) conn(ctx context.Context) dbtx {
	if tx, ok := txFromCtx(ctx); ok {
		return tx
	}
	return r.Pool
}

// Begin starts a new database transaction, or a savepoint when ctx already
// carries one.
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	var (
		tx  pgx.Tx
		err error
	)
	if outer, ok := txFromCtx(ctx); ok {
		tx, err = outer.Begin(ctx)
	} else {
		tx, err = r.Pool.Begin(ctx)
	}
	if err != nil {
		return nil, translateError(err, "failed to begin transaction")
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return translateError(err, "failed to commit transaction")
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return translateError(err, "failed to rollback transaction")
	}
	return nil
}

// WithinTx runs fn inside a transaction. Nested calls join the outer transaction.
func (r *BaseRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromCtx(ctx); ok {
		return fn(ctx)
	}
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	// Will be ignored if transaction is committed successfully
	defer r.Rollback(context.WithoutCancel(ctx), tx)

	if err := fn(context.WithValue(ctx, txCtxKey{}, tx)); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// translateError maps driver failures onto the application error taxonomy.
func translateError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return apperrors.NewPersistenceError(msg, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return apperrors.NewPersistenceError(msg, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return apperrors.NewAppError(409, msg+": "+pgErr.ConstraintName, apperrors.ErrDuplicate)
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57014", len(pgErr.Code) == 5 && pgErr.Code[:2] == "08":
			return apperrors.NewPersistenceError(msg, err)
		}
	}
	return apperrors.NewAppError(500, msg, err)
}
