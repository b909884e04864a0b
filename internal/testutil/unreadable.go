package testutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/multitimer/internal/db"
)

// UnreadableRegistryDB fails every read of the stored timer registry while
// all other statements reach the wrapped connection.
type UnreadableRegistryDB struct {
	db.DBTX
}

func (u UnreadableRegistryDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if len(args) == 1 && args[0] == "timers" {
		return u.DBTX.QueryRowContext(ctx, `SELECT value FROM registry_unavailable`)
	}
	return u.DBTX.QueryRowContext(ctx, query, args...)
}

// UnreadableRegistryUoW runs transactions whose registry reads fail.
type UnreadableRegistryUoW struct {
	DB *sql.DB
}

func (u *UnreadableRegistryUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if fnErr := fn(ctx, UnreadableRegistryDB{DBTX: tx}); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}
