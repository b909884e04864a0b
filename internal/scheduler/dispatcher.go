package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/repository"
)

// WakeHandler receives delivered wake alarms.
type WakeHandler interface {
	HandleWake(ctx context.Context, p domain.WakePayload) error
}

type armedAlarm struct {
	fireAt time.Time
	timer  *time.Timer
}

// Dispatcher mirrors the wake_alarms table into in-process timers keyed by
// timer id. Alarms whose time has passed fire immediately on Sync.
type Dispatcher struct {
	uow     db.UnitOfWork
	handler WakeHandler
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	armed  map[int64]*armedAlarm
	ctx    context.Context
	closed bool
}

func NewDispatcher(uow db.UnitOfWork, handler WakeHandler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		uow:     uow,
		handler: handler,
		logger:  logger,
		now:     time.Now,
		armed:   make(map[int64]*armedAlarm),
		ctx:     context.Background(),
	}
}

// Run syncs immediately and then every interval until ctx is done, when
// all armed timers are stopped.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()
	defer d.Close()

	if err := d.Sync(ctx); err != nil {
		d.logger.Warn("wake dispatcher: initial sync failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Sync(ctx); err != nil {
				d.logger.Warn("wake dispatcher: sync failed", "error", err)
			}
		}
	}
}

// Sync re-reads the alarm table: new or moved alarms are (re)armed and
// alarms that disappeared are stopped.
func (d *Dispatcher) Sync(ctx context.Context) error {
	var alarms []*domain.WakeAlarm
	err := d.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		alarms, err = repository.NewSQLiteWakeAlarmRepo(tx).List(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("loading wake alarms: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}

	seen := make(map[int64]bool, len(alarms))
	for _, a := range alarms {
		seen[a.TimerID] = true
		if cur, ok := d.armed[a.TimerID]; ok {
			if cur.fireAt.Equal(a.FireAt) {
				continue
			}
			cur.timer.Stop()
		}
		d.armLocked(a.TimerID, a.FireAt)
	}
	for id, cur := range d.armed {
		if !seen[id] {
			cur.timer.Stop()
			delete(d.armed, id)
		}
	}
	return nil
}

func (d *Dispatcher) armLocked(id int64, fireAt time.Time) {
	delay := max(fireAt.Sub(d.now()), 0)
	d.armed[id] = &armedAlarm{
		fireAt: fireAt,
		timer: time.AfterFunc(delay, func() {
			d.fire(id, fireAt)
		}),
	}
	d.logger.Debug("wake armed", "timer_id", id, "fire_at", fireAt.Format(time.RFC3339), "delay_ms", delay.Milliseconds())
}

// Armed returns the number of in-process timers.
func (d *Dispatcher) Armed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.armed)
}

// Close stops every armed timer. Later Syncs are no-ops.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, cur := range d.armed {
		cur.timer.Stop()
		delete(d.armed, id)
	}
	d.closed = true
}

func (d *Dispatcher) fire(id int64, fireAt time.Time) {
	d.mu.Lock()
	cur, ok := d.armed[id]
	if !ok || !cur.fireAt.Equal(fireAt) || d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.armed, id)
	ctx := d.ctx
	d.mu.Unlock()

	// Consume the row only if it was not re-scheduled in the meantime.
	var payload domain.WakePayload
	consumed := false
	err := d.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteWakeAlarmRepo(tx)
		a, err := repo.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		payload = a.Payload
		consumed, err = repo.DeleteIfUnchanged(ctx, id, fireAt)
		return err
	})
	if err != nil {
		d.logger.Warn("wake delivery failed", "timer_id", id, "error", err)
		return
	}
	if !consumed {
		return
	}

	payload.TimerID = id
	if err := d.handler.HandleWake(ctx, payload); err != nil {
		d.logger.Warn("wake handler failed", "timer_id", id, "error", err)
	}
}
