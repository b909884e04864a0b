package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/google/uuid"
)

// SQLiteEventRepo implements EventRepo on the append-only timer_events table.
type SQLiteEventRepo struct {
	db db.DBTX
}

func NewSQLiteEventRepo(conn db.DBTX) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: conn}
}

// Append inserts e, assigning an id and creation time when missing.
func (r *SQLiteEventRepo) Append(ctx context.Context, e *domain.TimerEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Source == "" {
		e.Source = domain.SourceApp
	}
	query := `INSERT INTO timer_events (id, timer_id, kind, source, wall_clock_ms, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.TimerID,
		string(e.Kind),
		string(e.Source),
		e.WallClockMs,
		e.ElapsedMs,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting timer event: %w", err)
	}
	return nil
}

// ListByTimer returns the newest events first. limit <= 0 means no limit.
func (r *SQLiteEventRepo) ListByTimer(ctx context.Context, timerID int64, limit int) ([]*domain.TimerEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, timer_id, kind, source, wall_clock_ms, elapsed_ms, created_at
		FROM timer_events WHERE timer_id = ?
		ORDER BY wall_clock_ms DESC, rowid DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, timerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events for timer %d: %w", timerID, err)
	}
	defer rows.Close()

	var events []*domain.TimerEvent
	for rows.Next() {
		var (
			e            domain.TimerEvent
			kind, source string
			created      string
		)
		if err := rows.Scan(&e.ID, &e.TimerID, &kind, &source, &e.WallClockMs, &e.ElapsedMs, &created); err != nil {
			return nil, fmt.Errorf("scanning timer event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		e.Source = domain.Source(source)
		e.CreatedAt = parseTime(created)
		events = append(events, &e)
	}
	return events, rows.Err()
}
