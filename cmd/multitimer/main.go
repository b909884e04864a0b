package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alexanderramin/multitimer/internal/alert"
	"github.com/alexanderramin/multitimer/internal/cli"
	"github.com/alexanderramin/multitimer/internal/clock"
	"github.com/alexanderramin/multitimer/internal/config"
	"github.com/alexanderramin/multitimer/internal/daemon"
	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/notify"
	"github.com/alexanderramin/multitimer/internal/scheduler"
	"github.com/alexanderramin/multitimer/internal/service"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.App{Clock: clock.System{}}
	defer app.Close()

	// Detect interactive terminal for the bare `multitimer` entrypoint.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}
	app.Setup = setup

	return cli.NewRootCmd(app).Execute()
}

// setup wires the process for its mode. One-shot verbs get no alert
// playback; the TUI and the daemon play alerts and show notifications.
func setup(ctx context.Context, app *cli.App, mode cli.Mode) error {
	cfg := app.Config

	logger, err := newLogger(app, cfg, mode)
	if err != nil {
		return err
	}
	app.Logger = logger

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	app.OnClose(func() { database.Close() })

	uow := db.NewSQLiteUnitOfWork(database)
	observer := service.NewLogUseCaseObserver(logger)

	var (
		alerts   *alert.Service
		hub      *service.AlertHub
		closers  []daemon.Closer
		router   service.ActionRouter
		notifier notify.Notifier
	)
	if mode == cli.ModeOneShot {
		hub = service.NewAlertHub(nil, nil, logger)
	} else {
		alerts = newAlertService(cfg, logger)
		notifier = newNotifier(cfg, logger, func(ctx context.Context, id int64, action domain.Action) {
			if err := router.Apply(ctx, id, action, domain.SourceNotification); err != nil {
				logger.Warn("notification action failed", "timer_id", id, "action", action, "error", err)
			}
		})
		if c, ok := notifier.(daemon.Closer); ok {
			closers = append(closers, c)
		}
		closers = append(closers, alerts)
		hub = service.NewAlertHub(alerts, notifier, logger)
	}

	app.Timers = service.NewTimerService(uow, app.Clock, hub, logger, observer)
	router = service.NewActionRouter(uow, app.Clock, hub, logger, observer)
	app.Router = router
	rec := service.NewReconciler(uow, app.Clock, hub, logger, observer)
	app.Reconciler = rec

	if alerts == nil {
		return nil
	}
	alerts.OnEnd(func(req alert.Request, reason alert.EndReason) {
		rec.HandleAlertEnd(context.Background(), req, reason)
	})
	app.AwaitAlerts = func(ctx context.Context) {
		awaitAlerts(ctx, alerts, rec, awaitPoll, logger)
	}

	if mode == cli.ModeDaemon {
		d := daemon.New(daemon.Options{
			Reconciler:       rec,
			Wakes:            scheduler.NewDispatcher(uow, rec, logger),
			TickInterval:     cfg.TickInterval,
			WakeSyncInterval: cfg.WakeSyncInterval,
			Logger:           logger,
			Closers:          closers,
		})
		app.Serve = d.Run
	}
	// Close is idempotent on both, so the daemon's own release is harmless.
	app.OnClose(func() {
		for _, c := range closers {
			c.Close()
		}
	})
	return nil
}

// newLogger logs to log_file when set. Without one, the TUI stays quiet
// since stderr would scribble over the alt screen.
func newLogger(app *cli.App, cfg config.Config, mode cli.Mode) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	var w io.Writer = os.Stderr
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		app.OnClose(func() { f.Close() })
		w = f
	case mode == cli.ModeInteractive:
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func newAlertService(cfg config.Config, logger *slog.Logger) *alert.Service {
	var players []alert.Player
	if cfg.SoundCommand != "" {
		players = append(players, alert.NewCommandPlayer(cfg.SoundCommand, logger))
	}
	players = append(players, alert.NewBellPlayer(os.Stdout))

	var vibrator alert.Vibrator
	if cfg.FlashTerminal && isatty.IsTerminal(os.Stdout.Fd()) {
		vibrator = alert.NewPatternVibrator(alert.NewTerminalFlasher(os.Stdout))
	}
	return alert.NewService(
		alert.NewFallbackPlayer(logger, players...),
		vibrator,
		alert.WithTimeout(cfg.AlertTimeout),
		alert.WithLogger(logger),
	)
}

func newNotifier(cfg config.Config, logger *slog.Logger, handler notify.ActionHandler) notify.Notifier {
	if !cfg.DesktopNotifications {
		return notify.NewLogNotifier(logger)
	}
	d, err := notify.NewDesktopNotifier(handler, logger)
	if err != nil {
		logger.Info("desktop notifications unavailable, logging instead", "error", err)
		return notify.NewLogNotifier(logger)
	}
	return d
}

// awaitPoll is how often a waiting rearm looks for alerts silenced, reset
// or deleted by another process.
const awaitPoll = 250 * time.Millisecond

// alertWatcher is the part of alert.Service awaitAlerts polls.
type alertWatcher interface {
	ActiveIDs() []int64
}

// awaitAlerts blocks while any alert is still sounding. Each poll syncs
// alerts against the store so a silence from another process ends the wait.
func awaitAlerts(ctx context.Context, alerts alertWatcher, rec service.Reconciler, poll time.Duration, logger *slog.Logger) {
	t := time.NewTicker(poll)
	defer t.Stop()
	for len(alerts.ActiveIDs()) > 0 {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := rec.SyncAlerts(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("syncing alerts failed", "error", err)
		}
	}
}
