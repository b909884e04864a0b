package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/alexanderramin/multitimer/internal/clock"
	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/repository"
	"github.com/alexanderramin/multitimer/internal/scheduler"
)

// cycle is one read-modify-write pass over the registry. Everything done
// through it commits or rolls back together.
type cycle struct {
	ctx    context.Context
	reg    *domain.Registry
	now    domain.Instant
	events repository.EventRepo
	wakes  scheduler.Scheduler
	dirty  bool
}

// runCycle loads the registry inside a transaction, runs fn and saves the
// registry if fn changed it. The clock is read after the write lock is
// held so concurrent processes see ordered timestamps.
func runCycle(ctx context.Context, uow db.UnitOfWork, clk clock.Clock, logger *slog.Logger, fn func(c *cycle) error) error {
	return uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		store := repository.NewSQLiteTimerStore(tx, logger)
		reg, err := store.Load(ctx)
		if err != nil {
			return err
		}
		c := &cycle{
			ctx:    ctx,
			reg:    reg,
			now:    clk.Now(),
			events: repository.NewSQLiteEventRepo(tx),
			wakes:  scheduler.NewPersistent(repository.NewSQLiteWakeAlarmRepo(tx)),
		}
		if err := fn(c); err != nil {
			return err
		}
		if !c.dirty {
			return nil
		}
		return store.Save(ctx, reg)
	})
}

// record marks the registry changed and appends an event for t.
func (c *cycle) record(t *domain.Timer, kind domain.EventKind, src domain.Source) error {
	c.dirty = true
	return c.note(t, kind, src)
}

// note appends an event without touching the registry.
func (c *cycle) note(t *domain.Timer, kind domain.EventKind, src domain.Source) error {
	return c.events.Append(c.ctx, &domain.TimerEvent{
		TimerID:     t.ID,
		Kind:        kind,
		Source:      src,
		WallClockMs: c.now.WallMs,
		ElapsedMs:   t.ElapsedMs(c.now),
		CreatedAt:   c.now.Time().UTC(),
	})
}

// syncWake schedules the wake alarm of a running timer for the moment its
// remaining time runs out, or cancels it for a stopped one.
func (c *cycle) syncWake(t *domain.Timer) error {
	if !t.IsRunning {
		return c.wakes.Cancel(c.ctx, t.ID)
	}
	fireAt := c.now.Time().Add(time.Duration(t.RemainingMs(c.now)) * time.Millisecond)
	return c.wakes.Schedule(c.ctx, t.ID, fireAt, scheduler.PayloadFor(t, c.now))
}

// finish stamps a due timer finished and claims its one-time alert. It
// reports whether this caller won the claim and must dispatch the alert.
func (c *cycle) finish(t *domain.Timer, src domain.Source) (bool, error) {
	if t.Finish(c.now) {
		if err := c.record(t, domain.EventFinished, src); err != nil {
			return false, err
		}
		if err := c.wakes.Cancel(c.ctx, t.ID); err != nil {
			return false, err
		}
	}
	if !t.MarkAlerted() {
		return false, nil
	}
	if err := c.record(t, domain.EventAlertDispatched, src); err != nil {
		return false, err
	}
	return true, nil
}

func cloneTimer(t *domain.Timer) *domain.Timer {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
