package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"kv_store", "wake_alarms", "timer_events"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	for _, idx := range []string{"idx_wake_alarms_fire_at", "idx_timer_events_timer"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_EventKindCheckConstraint(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO timer_events (id, timer_id, kind, source, wall_clock_ms, elapsed_ms, created_at)
		VALUES ('e1', 1, 'exploded', 'app', 0, 0, '2025-01-01T00:00:00Z')`)
	assert.Error(t, err, "unknown event kind should be rejected")

	_, err = db.Exec(`INSERT INTO timer_events (id, timer_id, kind, source, wall_clock_ms, elapsed_ms, created_at)
		VALUES ('e2', 1, 'started', 'app', 0, 0, '2025-01-01T00:00:00Z')`)
	assert.NoError(t, err)
}

func TestMigrate_BackfillsNextIDFromTimersBlob(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`DELETE FROM kv_store`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv_store (key, value, updated_at) VALUES ('timers', ?, 'x')`,
		`[{"id":3,"label":"a"},{"id":9,"label":"b"}]`)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	var next string
	require.NoError(t, db.QueryRow(`SELECT value FROM kv_store WHERE key = 'next_id'`).Scan(&next))
	assert.Equal(t, "10", next)
}

func TestMigrate_BackfillKeepsExistingCounter(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`DELETE FROM kv_store`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv_store (key, value, updated_at) VALUES
		('timers', '[{"id":2}]', 'x'),
		('next_id', '42', 'x')`)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	var next string
	require.NoError(t, db.QueryRow(`SELECT value FROM kv_store WHERE key = 'next_id'`).Scan(&next))
	assert.Equal(t, "42", next)
}

func TestMigrate_BackfillToleratesCorruptBlob(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`DELETE FROM kv_store`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv_store (key, value, updated_at) VALUES ('timers', '{not json', 'x')`)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	var next string
	require.NoError(t, db.QueryRow(`SELECT value FROM kv_store WHERE key = 'next_id'`).Scan(&next))
	assert.Equal(t, "1", next)
}

func TestOpenDB_InMemoryJournalMode(t *testing.T) {
	db := openTestDB(t)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "memory", mode)
}

func TestOpenDB_FileUsesWALAndBusyTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "timers.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}
