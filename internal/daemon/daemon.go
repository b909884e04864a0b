// Package daemon hosts the background side of multitimer: the
// reconciliation loop, the wake alarm dispatcher and alert playback, so
// timers finish and alert while no screen is open.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/multitimer/internal/scheduler"
	"github.com/alexanderramin/multitimer/internal/service"
)

// WakeRunner is the part of scheduler.Dispatcher the daemon drives.
type WakeRunner interface {
	Run(ctx context.Context, interval time.Duration) error
}

var _ WakeRunner = (*scheduler.Dispatcher)(nil)

// Closer is anything released when the daemon stops (alert playback,
// notification processes).
type Closer interface {
	Close()
}

type Options struct {
	Reconciler       service.Reconciler
	Wakes            WakeRunner
	TickInterval     time.Duration
	WakeSyncInterval time.Duration
	Logger           *slog.Logger
	Closers          []Closer
}

type Daemon struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) *Daemon {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 200 * time.Millisecond
	}
	if opts.WakeSyncInterval <= 0 {
		opts.WakeSyncInterval = time.Second
	}
	return &Daemon{opts: opts, logger: opts.Logger}
}

// Run re-arms wake alarms, then reconciles every tick until ctx is done.
// Tick failures are logged and retried on the next tick.
func (d *Daemon) Run(ctx context.Context) error {
	defer func() {
		for _, c := range d.opts.Closers {
			c.Close()
		}
	}()

	if res, err := d.opts.Reconciler.Rearm(ctx); err != nil {
		d.logger.Warn("boot re-arm failed", "error", err)
	} else {
		d.logger.Info("daemon started",
			"finished", len(res.Finished), "armed", len(res.Armed), "dropped", len(res.Dropped))
	}

	var wg sync.WaitGroup
	if d.opts.Wakes != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.opts.Wakes.Run(ctx, d.opts.WakeSyncInterval); err != nil {
				d.logger.Warn("wake dispatcher stopped", "error", err)
			}
		}()
	}
	defer wg.Wait()

	ticker := time.NewTicker(d.opts.TickInterval)
	defer ticker.Stop()
	for {
		d.reconcile(ctx)
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			return nil
		case <-ticker.C:
		}
	}
}

func (d *Daemon) reconcile(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := d.opts.Reconciler.Tick(ctx); err != nil {
		d.logger.Warn("tick failed", "error", err)
	}
	if err := d.opts.Reconciler.SyncAlerts(ctx); err != nil {
		d.logger.Warn("alert sync failed", "error", err)
	}
}
