// Package scheduler owns wake alarms: one pending one-shot callback per
// timer that fires when the timer's current run segment runs out, even if
// no screen is open.
//
// Alarms are rows in the wake_alarms table, written in the same
// transaction as the timer state they belong to. A Dispatcher running in
// the daemon arms in-process timers from those rows.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/repository"
)

// Scheduler registers and cancels wake alarms. Scheduling an id that
// already has an alarm replaces it.
type Scheduler interface {
	Schedule(ctx context.Context, id int64, fireAt time.Time, payload domain.WakePayload) error
	Cancel(ctx context.Context, id int64) error
}

// Persistent stores alarms through a WakeAlarmRepo. Build it on the same
// DBTX as the state change so both commit together.
type Persistent struct {
	repo repository.WakeAlarmRepo
	now  func() time.Time
}

func NewPersistent(repo repository.WakeAlarmRepo) *Persistent {
	return &Persistent{repo: repo, now: time.Now}
}

func (p *Persistent) Schedule(ctx context.Context, id int64, fireAt time.Time, payload domain.WakePayload) error {
	payload.TimerID = id
	err := p.repo.Upsert(ctx, &domain.WakeAlarm{
		TimerID:   id,
		FireAt:    fireAt,
		Payload:   payload,
		CreatedAt: p.now(),
	})
	if err != nil {
		return fmt.Errorf("scheduling wake for timer %d: %w", id, err)
	}
	return nil
}

func (p *Persistent) Cancel(ctx context.Context, id int64) error {
	if err := p.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("cancelling wake for timer %d: %w", id, err)
	}
	return nil
}

// PayloadFor builds the payload carried by a timer's wake alarm.
func PayloadFor(t *domain.Timer, now domain.Instant) domain.WakePayload {
	return domain.WakePayload{
		TimerID:   t.ID,
		Label:     t.Label,
		TotalMs:   t.TotalMs,
		ElapsedMs: t.ElapsedMs(now),
	}
}
