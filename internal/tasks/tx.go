package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// txFn runs inside a transaction. Returning an error rolls it back.
type txFn func(ctx context.Context, tx *sql.Tx) error

// runInTx commits fn's work or rolls it back on error or panic, so the
// connection is always released.
func runInTx(ctx context.Context, db *sql.DB, fn txFn) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "tx_rollback_failed",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "tx_rollback_failed",
				slog.String("error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf("rollback: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
