package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Migrate applies the schema. Every statement is safe to re-run.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillNextID(db); err != nil {
		return fmt.Errorf("backfilling timer id counter: %w", err)
	}
	return nil
}

var migrations = []string{
	// Flat key-value store. The timer registry lives here as a JSON blob
	// under "timers" with its id counter under "next_id".
	`CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	// One pending wake alarm per timer; scheduling replaces the row.
	`CREATE TABLE IF NOT EXISTS wake_alarms (
		timer_id   INTEGER PRIMARY KEY,
		fire_at_ms INTEGER NOT NULL,
		payload    BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_wake_alarms_fire_at ON wake_alarms(fire_at_ms)`,

	`CREATE TABLE IF NOT EXISTS timer_events (
		id            TEXT PRIMARY KEY,
		timer_id      INTEGER NOT NULL,
		kind          TEXT NOT NULL
		              CHECK(kind IN ('created','started','paused','reset','edited','deleted',
		                             'finished','alert_dispatched','silenced','alert_expired')),
		source        TEXT NOT NULL DEFAULT 'app',
		wall_clock_ms INTEGER NOT NULL,
		elapsed_ms    INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_timer_events_timer ON timer_events(timer_id, wall_clock_ms)`,
}

// migrateBackfillNextID seeds "next_id" for stores written before the
// counter was kept separately: one past the highest id in the blob.
// Existing counters are left alone.
func migrateBackfillNextID(db *sql.DB) error {
	ctx := context.Background()
	query := `INSERT INTO kv_store (key, value, updated_at)
		SELECT 'next_id', CAST(COALESCE(MAX(json_extract(j.value, '$.id')), 0) + 1 AS TEXT), ?
		FROM json_each((SELECT value FROM kv_store WHERE key = 'timers' AND json_valid(value))) AS j
		WHERE 1
		ON CONFLICT(key) DO NOTHING`
	if _, err := db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upserting next_id: %w", err)
	}
	return nil
}
