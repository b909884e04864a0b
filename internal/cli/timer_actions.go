package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/multitimer/internal/cli/formatter"
	"github.com/alexanderramin/multitimer/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

// runAction performs a mutation and reloads the snapshot in the same
// command, so the list never shows the state from before the action.
func runAction(app *App, fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		out, err := fn(ctx)
		if err != nil {
			out = actionError(err)
		}
		timers, listErr := app.Timers.List(ctx)
		return timersLoadedMsg{timers: timers, output: out, err: listErr}
	}
}

func actionError(err error) string {
	if errors.Is(err, domain.ErrTimerFinished) {
		return formatter.StyleYellow.Render("Finished; press r to reset it first.")
	}
	return formatter.StyleRed.Render("Error: " + err.Error())
}

// toggleTimer is the space key: pause a running or alerting timer,
// start anything else.
func toggleTimer(state *SharedState, t *domain.Timer) tea.Cmd {
	app := state.App
	if t.IsRunning || formatter.Alerting(t) {
		return routeAction(state, t, domain.ActionPause)
	}
	return runAction(app, func(ctx context.Context) (string, error) {
		started, err := app.Timers.Start(ctx, t.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s Running %s · %s left", formatter.StyleGreen.Render("▶"),
			formatter.Bold(started.Label), domain.FormatHMS(started.RemainingMs(app.Clock.Now()))), nil
	})
}

// routeAction sends pause, reset or silence through the action router.
func routeAction(state *SharedState, t *domain.Timer, action domain.Action) tea.Cmd {
	app := state.App
	return runAction(app, func(ctx context.Context) (string, error) {
		if err := app.Router.Apply(ctx, t.ID, action, domain.SourceApp); err != nil {
			return "", err
		}
		return actionDone(action, t.Label), nil
	})
}

func actionDone(action domain.Action, label string) string {
	switch action {
	case domain.ActionPause:
		return formatter.StyleYellow.Render("‖") + " Paused " + formatter.Bold(label)
	case domain.ActionReset:
		return formatter.StyleBlue.Render("↺") + " Reset " + formatter.Bold(label)
	default:
		return formatter.Dim("🔕") + " Silenced " + formatter.Bold(label)
	}
}

// execAddTimer pushes the new-timer form.
func execAddTimer(state *SharedState) tea.Cmd {
	in := &timerInput{Duration: "5:00"}
	form := wizardTimer(in, true)
	app := state.App
	return pushView(newWizardView(state, "New Timer", form, func() tea.Cmd {
		return runAction(app, func(ctx context.Context) (string, error) {
			d, err := domain.ParseDuration(in.Duration)
			if err != nil {
				return "", err
			}
			t, err := app.Timers.Add(ctx, in.Label, d, in.Start)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s Added %s (%s)", formatter.StyleGreen.Render("✔"),
				formatter.Bold(t.Label), domain.FormatHMS(t.TotalMs)), nil
		})
	}))
}

// execEditTimer pushes the edit form prefilled with t's values.
func execEditTimer(state *SharedState, t *domain.Timer) tea.Cmd {
	in := &timerInput{
		Label:    t.Label,
		Duration: domain.FormatHMS(t.TotalMs),
	}
	form := wizardTimer(in, false)
	app := state.App
	id, oldLabel, oldTotal := t.ID, t.Label, t.TotalMs
	return pushView(newWizardView(state, "Edit "+t.Label, form, func() tea.Cmd {
		return runAction(app, func(ctx context.Context) (string, error) {
			var label *string
			var total *time.Duration
			if in.Label != oldLabel {
				label = &in.Label
			}
			d, err := domain.ParseDuration(in.Duration)
			if err != nil {
				return "", err
			}
			if d.Milliseconds() != oldTotal {
				total = &d
			}
			if label == nil && total == nil {
				return formatter.Dim("No changes."), nil
			}
			edited, err := app.Timers.Edit(ctx, id, label, total)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s Updated %s (%s)", formatter.StyleGreen.Render("✔"),
				formatter.Bold(edited.Label), domain.FormatHMS(edited.TotalMs)), nil
		})
	}))
}

// execDeleteTimer pushes a confirmation wizard and deletes the timer
// if confirmed.
func execDeleteTimer(state *SharedState, t *domain.Timer) tea.Cmd {
	var confirmed bool
	form := wizardConfirm(fmt.Sprintf("Delete %q?", t.Label), &confirmed)
	app := state.App
	id, label := t.ID, t.Label
	return pushView(newWizardView(state, "Confirm Delete", form, func() tea.Cmd {
		if !confirmed {
			return outputCmd(formatter.Dim("Cancelled."))
		}
		return runAction(app, func(ctx context.Context) (string, error) {
			if err := app.Timers.Delete(ctx, id); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s Deleted %s", formatter.StyleRed.Render("✖"), formatter.Bold(label)), nil
		})
	}))
}
