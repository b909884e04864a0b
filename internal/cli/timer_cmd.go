package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alexanderramin/multitimer/internal/cli/formatter"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/repository"
	"github.com/spf13/cobra"
)

func newAddCmd(app *App) *cobra.Command {
	var start bool

	cmd := &cobra.Command{
		Use:   "add LABEL DURATION",
		Short: "Create a timer",
		Long: `Create a timer. DURATION is HH:MM:SS, MM:SS, plain seconds or a
Go duration such as 25m or 1h30m. An empty LABEL ("") becomes "Timer N".`,
		Example: `  multitimer add Tea 3:00 --start
  multitimer add "Pomodoro" 25m`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := domain.ParseDuration(args[1])
			if err != nil {
				return err
			}
			t, err := app.Timers.Add(cmd.Context(), args[0], d, start)
			if err != nil {
				return err
			}

			verb := "Added"
			if start {
				verb = "Started"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s #%d %s (%s)\n",
				formatter.StyleGreen.Render("✔"), verb, t.ID,
				formatter.Bold(t.Label), domain.FormatHMS(t.TotalMs))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&start, "start", "s", false, "Start the timer right away")
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all timers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTimerList(cmd, app)
		},
	}
}

func printTimerList(cmd *cobra.Command, app *App) error {
	timers, err := app.Timers.List(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTimerList(timers, app.Clock.Now()))
	return nil
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one timer in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTimerID(args[0])
			if err != nil {
				return err
			}
			t, err := app.Timers.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTimer(t, app.Clock.Now()))
			return nil
		},
	}
}

func newStartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "start ID",
		Aliases: []string{"resume"},
		Short:   "Start or resume a timer",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTimerID(args[0])
			if err != nil {
				return err
			}
			t, err := app.Timers.Start(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Running #%d %s · %s left\n",
				formatter.StyleGreen.Render("▶"), t.ID, formatter.Bold(t.Label),
				domain.FormatHMS(t.RemainingMs(app.Clock.Now())))
			return nil
		},
	}
}

// newActionCmd builds the pause, reset and silence commands. They all go
// through the action router so they behave exactly like the matching
// notification buttons.
func newActionCmd(app *App, name, short string) *cobra.Command {
	action, ok := domain.ParseAction(name)
	if !ok {
		panic("unknown action " + name)
	}

	return &cobra.Command{
		Use:   name + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTimerID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := app.Timers.Get(ctx, id); err != nil {
				return err
			}
			if err := app.Router.Apply(ctx, id, action, domain.SourceApp); err != nil {
				return err
			}
			t, err := app.Timers.Get(ctx, id)
			if err != nil {
				return err
			}
			now := app.Clock.Now()
			status := formatter.DisplayStatus(t, now)
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s  %s  %s left\n",
				t.ID, formatter.Bold(t.Label), formatter.StatusPill(status),
				domain.FormatHMS(t.RemainingMs(now)))
			return nil
		},
	}
}

func newEditCmd(app *App) *cobra.Command {
	var label, duration string

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a timer's label or duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTimerID(args[0])
			if err != nil {
				return err
			}

			var labelPtr *string
			var totalPtr *time.Duration
			if cmd.Flags().Changed("label") {
				labelPtr = &label
			}
			if cmd.Flags().Changed("duration") {
				d, err := domain.ParseDuration(duration)
				if err != nil {
					return err
				}
				totalPtr = &d
			}
			if labelPtr == nil && totalPtr == nil {
				return errors.New("nothing to change: pass --label and/or --duration")
			}

			t, err := app.Timers.Edit(cmd.Context(), id, labelPtr, totalPtr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Updated #%d %s (%s)\n",
				formatter.StyleGreen.Render("✔"), t.ID,
				formatter.Bold(t.Label), domain.FormatHMS(t.TotalMs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "New label")
	cmd.Flags().StringVarP(&duration, "duration", "d", "", "New duration")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a timer and stop its alert",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTimerID(args[0])
			if err != nil {
				return err
			}
			t, err := app.Timers.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := app.Timers.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted #%d %s\n",
				formatter.StyleRed.Render("✖"), t.ID, formatter.Bold(t.Label))
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "Show the recorded events of a timer",
		Long:  "Show the recorded events of a timer, newest first. Deleted timers keep their history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTimerID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			events, err := app.Timers.History(ctx, id, limit)
			if err != nil {
				return err
			}

			label := fmt.Sprintf("#%d", id)
			if t, err := app.Timers.Get(ctx, id); err == nil {
				label += " " + t.Label
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			} else {
				label += " " + formatter.Dim("(deleted)")
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatHistory(label, events, app.Clock.Now().Time()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events (0 for all)")
	return cmd
}

// parseTimerID accepts "3" or "#3".
func parseTimerID(s string) (int64, error) {
	if len(s) > 1 && s[0] == '#' {
		s = s[1:]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid timer id %q", s)
	}
	return id, nil
}
