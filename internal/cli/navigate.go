package cli

import (
	"context"
	"time"

	"github.com/alexanderramin/multitimer/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

// Navigation messages used by views to request view transitions.
// The appModel handles these in its Update method.

// pushViewMsg pushes a new view onto the navigation stack.
type pushViewMsg struct {
	view View
}

// popViewMsg pops the current view off the navigation stack,
// returning to the previous view.
type popViewMsg struct{}

// refreshViewMsg is broadcast to every view on the stack once
// SharedState holds a new snapshot.
type refreshViewMsg struct{}

// timersLoadedMsg carries a fresh snapshot into SharedState, plus the
// result line of the action that preceded it, if any.
type timersLoadedMsg struct {
	timers []*domain.Timer
	output string
	err    error
}

// tickMsg drives the periodic reconcile pass.
type tickMsg time.Time

// reconciledMsg reports one reconcile pass and the snapshot taken after it.
type reconciledMsg struct {
	finished []int64
	timers   []*domain.Timer
	err      error
}

// cmdOutputMsg carries a one-line result to show above the status bar.
type cmdOutputMsg struct {
	output string
}

// wizardCompleteMsg is sent when a wizard form completes or is cancelled.
// The appModel handles it atomically: pop the wizard view, then run nextCmd.
type wizardCompleteMsg struct {
	nextCmd tea.Cmd
}

// quitMsg asks the app to exit.
type quitMsg struct{}

// pushView returns a tea.Cmd that pushes a view onto the stack.
func pushView(v View) tea.Cmd {
	return func() tea.Msg { return pushViewMsg{view: v} }
}

// popView returns a tea.Cmd that pops the current view.
func popView() tea.Cmd {
	return func() tea.Msg { return popViewMsg{} }
}

func outputCmd(s string) tea.Cmd {
	if s == "" {
		return nil
	}
	return func() tea.Msg { return cmdOutputMsg{output: s} }
}

func wizardCompleteOutput(msg string) tea.Msg {
	return wizardCompleteMsg{nextCmd: outputCmd(msg)}
}

// loadTimers reads a snapshot without reconciling.
func loadTimers(app *App) tea.Cmd {
	return func() tea.Msg {
		timers, err := app.Timers.List(context.Background())
		return timersLoadedMsg{timers: timers, err: err}
	}
}

// scheduleTick waits one interval and then asks for a reconcile pass.
func scheduleTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// reconcile finishes due timers, stops alerts made stale by other
// processes and reloads the snapshot.
func reconcile(app *App) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		finished, err := app.Reconciler.Tick(ctx)
		if err == nil {
			err = app.Reconciler.SyncAlerts(ctx)
		}
		timers, listErr := app.Timers.List(ctx)
		if err == nil {
			err = listErr
		}
		return reconciledMsg{finished: finished, timers: timers, err: err}
	}
}
