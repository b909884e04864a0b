package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/multitimer/internal/cli/formatter"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newUICmd(app *App) *cobra.Command {
	return withMode(&cobra.Command{
		Use:     "ui",
		Aliases: []string{"tui"},
		Short:   "Open the interactive timer list",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd, app)
		},
	}, ModeInteractive)
}

func runUI(cmd *cobra.Command, app *App) error {
	p := tea.NewProgram(newAppModel(app),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
		return nil
	}
	return err
}

func newDaemonCmd(app *App) *cobra.Command {
	return withMode(&cobra.Command{
		Use:   "daemon",
		Short: "Run in the background so timers alert on time",
		Long: `Run in the background: fire wake alarms, finish timers whose time is
up and play their alerts. Start it from your session autostart; it re-arms
every running timer when it starts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Serve == nil {
				return errors.New("daemon is not configured")
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return app.Serve(ctx)
		},
	}, ModeDaemon)
}

func newRearmCmd(app *App) *cobra.Command {
	return withMode(&cobra.Command{
		Use:   "rearm",
		Short: "Re-register wake alarms after a reboot",
		Long: `Re-register a wake alarm for every running timer, finish the ones whose
time ran out while the machine was down and drop stale alarms. Timers that
finish here alert before the command exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			res, err := app.Reconciler.Rearm(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Re-armed %d running, finished %d, dropped %d stale\n",
				formatter.StyleGreen.Render("✔"), len(res.Armed), len(res.Finished), len(res.Dropped))
			if len(res.Finished) > 0 && app.AwaitAlerts != nil {
				fmt.Fprintln(out, formatter.Dim("Alerting; silence with: multitimer silence ID"))
				app.AwaitAlerts(ctx)
			}
			return nil
		},
	}, ModeDaemon)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
