package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/multitimer/internal/domain"
)

// KVStore is a flat string key-value table.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// TimerStore persists the whole registry. Load never fails on missing or
// unreadable data; it falls back to an empty registry.
type TimerStore interface {
	Load(ctx context.Context) (*domain.Registry, error)
	Save(ctx context.Context, r *domain.Registry) error
}

type WakeAlarmRepo interface {
	Upsert(ctx context.Context, a *domain.WakeAlarm) error
	Get(ctx context.Context, timerID int64) (*domain.WakeAlarm, error)
	List(ctx context.Context) ([]*domain.WakeAlarm, error)
	Delete(ctx context.Context, timerID int64) error
	// DeleteIfUnchanged removes the alarm only if it still fires at fireAt,
	// so a delivery never consumes an alarm that was re-scheduled meanwhile.
	DeleteIfUnchanged(ctx context.Context, timerID int64, fireAt time.Time) (bool, error)
}

type EventRepo interface {
	Append(ctx context.Context, e *domain.TimerEvent) error
	ListByTimer(ctx context.Context, timerID int64, limit int) ([]*domain.TimerEvent, error)
}
