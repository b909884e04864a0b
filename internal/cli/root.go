package cli

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alexanderramin/multitimer/internal/clock"
	"github.com/alexanderramin/multitimer/internal/config"
	"github.com/alexanderramin/multitimer/internal/service"
	"github.com/spf13/cobra"
)

// Mode selects which runtime pieces a command needs wired.
type Mode int

const (
	// ModeOneShot commands change stored state and exit. They never run
	// reconcile passes, so they cannot claim an alert they would then drop.
	ModeOneShot Mode = iota
	// ModeInteractive is the TUI: it ticks and plays alerts.
	ModeInteractive
	// ModeDaemon hosts wake alarms, ticks and alerts in the background.
	ModeDaemon
)

const modeAnnotation = "multitimer.mode"

func (m Mode) String() string {
	switch m {
	case ModeInteractive:
		return "interactive"
	case ModeDaemon:
		return "daemon"
	default:
		return "oneshot"
	}
}

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Timers     service.TimerService
	Router     service.ActionRouter
	Reconciler service.Reconciler
	Clock      clock.Clock
	Config     config.Config
	Logger     *slog.Logger

	// IsInteractive reports whether the bare command should open the UI.
	IsInteractive func() bool

	// Setup wires the services above once flags and config are resolved.
	// Nil for an App built pre-wired.
	Setup func(ctx context.Context, app *App, mode Mode) error

	// Serve runs the background daemon until ctx is done.
	Serve func(ctx context.Context) error

	// AwaitAlerts blocks until alerts started by this process have ended.
	AwaitAlerts func(ctx context.Context)

	mu      sync.Mutex
	closers []func()
}

// OnClose registers fn to run when the App is closed. Closers run in
// reverse registration order.
func (a *App) OnClose(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Close releases everything Setup acquired.
func (a *App) Close() {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// prepare loads configuration and wires the App for the command about to run.
func (a *App) prepare(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	a.Config = cfg
	if a.Setup == nil {
		return nil
	}
	return a.Setup(cmd.Context(), a, a.modeFor(cmd))
}

func (a *App) modeFor(cmd *cobra.Command) Mode {
	switch cmd.Annotations[modeAnnotation] {
	case ModeInteractive.String():
		return ModeInteractive
	case ModeDaemon.String():
		return ModeDaemon
	}
	if !cmd.HasParent() && a.interactive() {
		return ModeInteractive
	}
	return ModeOneShot
}

func withMode(cmd *cobra.Command, m Mode) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = make(map[string]string)
	}
	cmd.Annotations[modeAnnotation] = m.String()
	return cmd
}

// NewRootCmd creates the top-level "multitimer" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "multitimer",
		Short: "Independent countdown timers that alert on time",
		Long: `multitimer keeps any number of named countdown timers.

Timers survive restarts and keep counting while no screen is open; run
"multitimer daemon" so they alert on time. Without a subcommand the
interactive UI opens on a terminal and the timer list prints otherwise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.interactive() {
				return runUI(cmd, app)
			}
			return printTimerList(cmd, app)
		},
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newAddCmd(app),
		newListCmd(app),
		newShowCmd(app),
		newStartCmd(app),
		newActionCmd(app, "pause", "Pause a running timer, or silence a finished one"),
		newActionCmd(app, "reset", "Return a timer to its never-started state"),
		newActionCmd(app, "silence", "Stop the alert of a finished timer"),
		newEditCmd(app),
		newDeleteCmd(app),
		newHistoryCmd(app),
		newUICmd(app),
		newDaemonCmd(app),
		newRearmCmd(app),
	)

	return root
}
