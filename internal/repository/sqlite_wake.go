package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
)

// SQLiteWakeAlarmRepo implements WakeAlarmRepo. Each timer has at most one
// pending alarm; Upsert replaces it.
type SQLiteWakeAlarmRepo struct {
	db db.DBTX
}

func NewSQLiteWakeAlarmRepo(conn db.DBTX) *SQLiteWakeAlarmRepo {
	return &SQLiteWakeAlarmRepo{db: conn}
}

func (r *SQLiteWakeAlarmRepo) Upsert(ctx context.Context, a *domain.WakeAlarm) error {
	payload, err := EncodeWakePayload(a.Payload)
	if err != nil {
		return fmt.Errorf("encoding wake payload: %w", err)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	query := `INSERT INTO wake_alarms (timer_id, fire_at_ms, payload, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(timer_id) DO UPDATE SET
			fire_at_ms = excluded.fire_at_ms,
			payload = excluded.payload,
			created_at = excluded.created_at`
	_, err = r.db.ExecContext(ctx, query,
		a.TimerID,
		a.FireAt.UnixMilli(),
		payload,
		created.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting wake alarm for timer %d: %w", a.TimerID, err)
	}
	return nil
}

func (r *SQLiteWakeAlarmRepo) Get(ctx context.Context, timerID int64) (*domain.WakeAlarm, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT timer_id, fire_at_ms, payload, created_at FROM wake_alarms WHERE timer_id = ?`, timerID)
	a, err := scanWakeAlarm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wake alarm %d: %w", timerID, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning wake alarm: %w", err)
	}
	return a, nil
}

func (r *SQLiteWakeAlarmRepo) List(ctx context.Context) ([]*domain.WakeAlarm, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT timer_id, fire_at_ms, payload, created_at FROM wake_alarms ORDER BY fire_at_ms, timer_id`)
	if err != nil {
		return nil, fmt.Errorf("listing wake alarms: %w", err)
	}
	defer rows.Close()

	var alarms []*domain.WakeAlarm
	for rows.Next() {
		a, err := scanWakeAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wake alarm: %w", err)
		}
		alarms = append(alarms, a)
	}
	return alarms, rows.Err()
}

func (r *SQLiteWakeAlarmRepo) Delete(ctx context.Context, timerID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM wake_alarms WHERE timer_id = ?`, timerID); err != nil {
		return fmt.Errorf("deleting wake alarm for timer %d: %w", timerID, err)
	}
	return nil
}

func (r *SQLiteWakeAlarmRepo) DeleteIfUnchanged(ctx context.Context, timerID int64, fireAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM wake_alarms WHERE timer_id = ? AND fire_at_ms = ?`, timerID, fireAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("consuming wake alarm for timer %d: %w", timerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking consumed wake alarm: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWakeAlarm(s rowScanner) (*domain.WakeAlarm, error) {
	var (
		a        domain.WakeAlarm
		fireAtMs int64
		payload  []byte
		created  string
	)
	if err := s.Scan(&a.TimerID, &fireAtMs, &payload, &created); err != nil {
		return nil, err
	}
	p, err := DecodeWakePayload(payload)
	if err != nil {
		// The row still carries enough to deliver the wake.
		p = domain.WakePayload{TimerID: a.TimerID}
	}
	a.Payload = p
	a.FireAt = time.UnixMilli(fireAtMs)
	a.CreatedAt = parseTime(created)
	return &a, nil
}
