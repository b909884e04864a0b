package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/multitimer/internal/clock"
	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
)

type actionRouter struct {
	uow      db.UnitOfWork
	clk      clock.Clock
	hub      *AlertHub
	logger   *slog.Logger
	observer UseCaseObserver
}

func NewActionRouter(
	uow db.UnitOfWork,
	clk clock.Clock,
	hub *AlertHub,
	logger *slog.Logger,
	observers ...UseCaseObserver,
) ActionRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &actionRouter{
		uow:      uow,
		clk:      clk,
		hub:      hub,
		logger:   logger,
		observer: useCaseObserverOrNoop(observers),
	}
}

// Apply stops the local alert first so the sound ends as soon as the user
// acts, then updates the record, its wake alarm and its event log in one
// transaction, then withdraws the notification.
func (r *actionRouter) Apply(ctx context.Context, id int64, action domain.Action, source domain.Source) (err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"timer_id": id,
		"action":   string(action),
		"source":   string(source),
	}
	defer observe(ctx, r.observer, "apply-action", startedAt, fields, &err)

	if _, ok := domain.ParseAction(string(action)); !ok {
		return fmt.Errorf("unknown action %q", action)
	}

	if r.hub != nil && r.hub.alerts != nil {
		r.hub.alerts.Stop(id)
	}

	changed := false
	err = runCycle(ctx, r.uow, r.clk, r.logger, func(c *cycle) error {
		t := c.reg.Get(id)
		if t == nil {
			fields["outcome"] = "unknown"
			return nil
		}
		var err error
		changed, err = applyAction(c, t, action, source)
		return err
	})
	if err != nil {
		return fmt.Errorf("applying %s to timer %d: %w", action, id, err)
	}
	fields["changed"] = changed

	r.hub.withdraw(ctx, id)
	return nil
}

func applyAction(c *cycle, t *domain.Timer, action domain.Action, src domain.Source) (bool, error) {
	wasRunning := t.IsRunning
	wasFinished := t.IsFinished()
	wasSilenced := t.Silenced

	switch action {
	case domain.ActionPause:
		if !t.Pause(c.now) {
			return false, nil
		}
		if wasRunning {
			if err := c.record(t, domain.EventPaused, src); err != nil {
				return false, err
			}
		}
		if !wasFinished && t.IsFinished() {
			if err := c.record(t, domain.EventFinished, src); err != nil {
				return false, err
			}
		}
	case domain.ActionReset:
		if !t.Reset() {
			return false, nil
		}
		if err := c.record(t, domain.EventReset, src); err != nil {
			return false, err
		}
	case domain.ActionSilence:
		if !t.Silence() {
			return false, nil
		}
	}

	if t.Silenced && !wasSilenced {
		if err := c.record(t, domain.EventSilenced, src); err != nil {
			return false, err
		}
	}
	if wasRunning && !t.IsRunning {
		if err := c.wakes.Cancel(c.ctx, t.ID); err != nil {
			return false, err
		}
	}
	return true, nil
}
