package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/multitimer/internal/clock"
	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/repository"
)

type timerService struct {
	uow      db.UnitOfWork
	clk      clock.Clock
	hub      *AlertHub
	logger   *slog.Logger
	observer UseCaseObserver
}

func NewTimerService(
	uow db.UnitOfWork,
	clk clock.Clock,
	hub *AlertHub,
	logger *slog.Logger,
	observers ...UseCaseObserver,
) TimerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &timerService{
		uow:      uow,
		clk:      clk,
		hub:      hub,
		logger:   logger,
		observer: useCaseObserverOrNoop(observers),
	}
}

func notFound(id int64) error {
	return fmt.Errorf("timer %d: %w", id, repository.ErrNotFound)
}

func (s *timerService) Add(ctx context.Context, label string, total time.Duration, start bool) (created *domain.Timer, err error) {
	startedAt := time.Now()
	fields := map[string]any{"total_ms": total.Milliseconds(), "start": start}
	defer observe(ctx, s.observer, "add-timer", startedAt, fields, &err)

	err = runCycle(ctx, s.uow, s.clk, s.logger, func(c *cycle) error {
		t, err := c.reg.Add(label, total, c.now.Time())
		if err != nil {
			return err
		}
		if err := c.record(t, domain.EventCreated, domain.SourceApp); err != nil {
			return err
		}
		if start {
			if _, err := t.Start(c.now); err != nil {
				return err
			}
			if err := c.record(t, domain.EventStarted, domain.SourceApp); err != nil {
				return err
			}
			if err := c.syncWake(t); err != nil {
				return err
			}
		}
		created = cloneTimer(t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("adding timer: %w", err)
	}
	fields["timer_id"] = created.ID
	return created, nil
}

func (s *timerService) Edit(ctx context.Context, id int64, label *string, total *time.Duration) (edited *domain.Timer, err error) {
	startedAt := time.Now()
	fields := map[string]any{"timer_id": id}
	defer observe(ctx, s.observer, "edit-timer", startedAt, fields, &err)

	unfinished := false
	err = runCycle(ctx, s.uow, s.clk, s.logger, func(c *cycle) error {
		t := c.reg.Get(id)
		if t == nil {
			return notFound(id)
		}
		wasFinished := t.IsFinished()
		if err := t.Edit(c.now, label, total); err != nil {
			return err
		}
		unfinished = wasFinished && !t.IsFinished()
		if err := c.record(t, domain.EventEdited, domain.SourceApp); err != nil {
			return err
		}
		if t.IsRunning {
			if err := c.syncWake(t); err != nil {
				return err
			}
		}
		edited = cloneTimer(t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("editing timer %d: %w", id, err)
	}
	if unfinished {
		s.hub.withdraw(ctx, id)
	}
	return edited, nil
}

func (s *timerService) Start(ctx context.Context, id int64) (started *domain.Timer, err error) {
	startedAt := time.Now()
	fields := map[string]any{"timer_id": id}
	defer observe(ctx, s.observer, "start-timer", startedAt, fields, &err)

	err = runCycle(ctx, s.uow, s.clk, s.logger, func(c *cycle) error {
		t := c.reg.Get(id)
		if t == nil {
			return notFound(id)
		}
		changed, err := t.Start(c.now)
		if err != nil {
			return err
		}
		fields["changed"] = changed
		if changed {
			if err := c.record(t, domain.EventStarted, domain.SourceApp); err != nil {
				return err
			}
			if err := c.syncWake(t); err != nil {
				return err
			}
		}
		started = cloneTimer(t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("starting timer %d: %w", id, err)
	}
	return started, nil
}

func (s *timerService) Delete(ctx context.Context, id int64) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"timer_id": id}
	defer observe(ctx, s.observer, "delete-timer", startedAt, fields, &err)

	err = runCycle(ctx, s.uow, s.clk, s.logger, func(c *cycle) error {
		t := c.reg.Get(id)
		if t == nil {
			return notFound(id)
		}
		if err := c.record(t, domain.EventDeleted, domain.SourceApp); err != nil {
			return err
		}
		c.reg.Remove(id)
		return c.wakes.Cancel(c.ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting timer %d: %w", id, err)
	}
	s.hub.withdraw(ctx, id)
	return nil
}

func (s *timerService) List(ctx context.Context) ([]*domain.Timer, error) {
	var out []*domain.Timer
	err := runCycle(ctx, s.uow, s.clk, s.logger, func(c *cycle) error {
		out = make([]*domain.Timer, 0, len(c.reg.Timers))
		for _, t := range c.reg.Timers {
			out = append(out, cloneTimer(t))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing timers: %w", err)
	}
	return out, nil
}

func (s *timerService) Get(ctx context.Context, id int64) (*domain.Timer, error) {
	var out *domain.Timer
	err := runCycle(ctx, s.uow, s.clk, s.logger, func(c *cycle) error {
		out = cloneTimer(c.reg.Get(id))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting timer %d: %w", id, err)
	}
	if out == nil {
		return nil, notFound(id)
	}
	return out, nil
}

// History returns the newest events first. Deleted timers keep their
// history.
func (s *timerService) History(ctx context.Context, id int64, limit int) ([]*domain.TimerEvent, error) {
	var events []*domain.TimerEvent
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		events, err = repository.NewSQLiteEventRepo(tx).ListByTimer(ctx, id, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading history for timer %d: %w", id, err)
	}
	if len(events) == 0 {
		return nil, notFound(id)
	}
	return events, nil
}
