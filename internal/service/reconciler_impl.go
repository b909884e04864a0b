package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/multitimer/internal/alert"
	"github.com/alexanderramin/multitimer/internal/clock"
	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/repository"
)

type reconciler struct {
	uow      db.UnitOfWork
	clk      clock.Clock
	hub      *AlertHub
	logger   *slog.Logger
	observer UseCaseObserver
}

func NewReconciler(
	uow db.UnitOfWork,
	clk clock.Clock,
	hub *AlertHub,
	logger *slog.Logger,
	observers ...UseCaseObserver,
) Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &reconciler{
		uow:      uow,
		clk:      clk,
		hub:      hub,
		logger:   logger,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (r *reconciler) Tick(ctx context.Context) ([]int64, error) {
	var claimed []*domain.Timer
	var finished []int64
	err := runCycle(ctx, r.uow, r.clk, r.logger, func(c *cycle) error {
		for _, t := range c.reg.Running() {
			if !t.Due(c.now) {
				continue
			}
			won, err := c.finish(t, domain.SourceLoop)
			if err != nil {
				return err
			}
			finished = append(finished, t.ID)
			if won {
				claimed = append(claimed, cloneTimer(t))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tick: %w", err)
	}
	for _, t := range claimed {
		r.logger.Info("timer finished", "timer_id", t.ID, "label", t.Label, "source", string(domain.SourceLoop))
		r.hub.dispatch(ctx, t)
	}
	return finished, nil
}

func (r *reconciler) HandleWake(ctx context.Context, p domain.WakePayload) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"timer_id": p.TimerID}
	defer observe(ctx, r.observer, "handle-wake", startedAt, fields, &err)

	var claimed *domain.Timer
	err = runCycle(ctx, r.uow, r.clk, r.logger, func(c *cycle) error {
		t := c.reg.Get(p.TimerID)
		switch {
		case t == nil:
			fields["outcome"] = "unknown"
			return nil
		case !t.IsRunning && !t.IsFinished():
			fields["outcome"] = "stale"
			return nil
		case t.IsRunning && !t.Due(c.now):
			fields["outcome"] = "early"
			return c.syncWake(t)
		}
		won, err := c.finish(t, domain.SourceWake)
		if err != nil {
			return err
		}
		fields["outcome"] = "finished"
		if won {
			claimed = cloneTimer(t)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("handling wake for timer %d: %w", p.TimerID, err)
	}
	if claimed != nil {
		r.logger.Info("timer finished", "timer_id", claimed.ID, "label", claimed.Label, "source", string(domain.SourceWake))
		r.hub.dispatch(ctx, claimed)
	}
	return nil
}

func (r *reconciler) Rearm(ctx context.Context) (res *RearmResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{}
	defer observe(ctx, r.observer, "rearm", startedAt, fields, &err)

	res = &RearmResult{}
	var claimed []*domain.Timer
	err = r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		wakeRepo := repository.NewSQLiteWakeAlarmRepo(tx)
		alarms, err := wakeRepo.List(ctx)
		if err != nil {
			return err
		}
		return runCycle(ctx, txUnit{tx}, r.clk, r.logger, func(c *cycle) error {
			if c.reg.Degraded {
				return repository.ErrRegistryUnavailable
			}
			for _, t := range c.reg.Running() {
				if t.Due(c.now) {
					won, err := c.finish(t, domain.SourceBoot)
					if err != nil {
						return err
					}
					res.Finished = append(res.Finished, t.ID)
					if won {
						claimed = append(claimed, cloneTimer(t))
					}
					continue
				}
				if err := c.syncWake(t); err != nil {
					return err
				}
				res.Armed = append(res.Armed, t.ID)
			}
			finishedNow := make(map[int64]bool, len(res.Finished))
			for _, id := range res.Finished {
				finishedNow[id] = true
			}
			for _, a := range alarms {
				if t := c.reg.Get(a.TimerID); t != nil && (t.IsRunning || finishedNow[t.ID]) {
					continue
				}
				if err := c.wakes.Cancel(c.ctx, a.TimerID); err != nil {
					return err
				}
				res.Dropped = append(res.Dropped, a.TimerID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("re-arming wake alarms: %w", err)
	}
	fields["finished"] = len(res.Finished)
	fields["armed"] = len(res.Armed)
	fields["dropped"] = len(res.Dropped)
	for _, t := range claimed {
		r.hub.dispatch(ctx, t)
	}
	return res, nil
}

func (r *reconciler) SyncAlerts(ctx context.Context) error {
	ids := r.hub.tracked()
	if len(ids) == 0 {
		return nil
	}
	var reg *domain.Registry
	err := runCycle(ctx, r.uow, r.clk, r.logger, func(c *cycle) error {
		reg = c.reg
		return nil
	})
	if err != nil {
		return fmt.Errorf("syncing alerts: %w", err)
	}
	if reg.Degraded {
		return fmt.Errorf("syncing alerts: %w", repository.ErrRegistryUnavailable)
	}
	for _, id := range ids {
		t := reg.Get(id)
		if t != nil && t.Alerted && !t.Silenced {
			continue
		}
		r.logger.Info("alert withdrawn", "timer_id", id, "reason", withdrawReason(t))
		r.hub.withdraw(ctx, id)
	}
	return nil
}

func withdrawReason(t *domain.Timer) string {
	switch {
	case t == nil:
		return "deleted"
	case t.Silenced:
		return "silenced"
	default:
		return "reset"
	}
}

// HandleAlertEnd is the alert service's end hook. An alert that ran out
// its timeout takes its notification with it.
func (r *reconciler) HandleAlertEnd(ctx context.Context, req alert.Request, reason alert.EndReason) {
	if reason != alert.EndTimeout {
		return
	}
	r.hub.expire(ctx, req.TimerID)
	err := runCycle(ctx, r.uow, r.clk, r.logger, func(c *cycle) error {
		t := c.reg.Get(req.TimerID)
		if t == nil {
			return nil
		}
		return c.note(t, domain.EventAlertExpired, domain.SourceLoop)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("recording alert expiry failed", "timer_id", req.TimerID, "error", err)
	}
}

// txUnit runs nested cycles on an already open transaction.
type txUnit struct {
	tx db.DBTX
}

func (u txUnit) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return fn(ctx, u.tx)
}
