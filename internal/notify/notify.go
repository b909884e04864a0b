// Package notify shows the "timer finished" notification with its
// Silence, Pause and Reset actions.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/multitimer/internal/domain"
)

// Notification is keyed by timer id; showing a second one for the same id
// replaces the first.
type Notification struct {
	TimerID int64
	Title   string
	Body    string
	Actions []domain.Action
}

// DefaultActions are offered on every finish notification.
var DefaultActions = []domain.Action{domain.ActionSilence, domain.ActionPause, domain.ActionReset}

// Finished builds the notification for a finished timer.
func Finished(id int64, label string, total time.Duration) Notification {
	return Notification{
		TimerID: id,
		Title:   "Timer finished",
		Body:    fmt.Sprintf("%s (%s) is done", label, domain.FormatHMS(total.Milliseconds())),
		Actions: DefaultActions,
	}
}

// ActionHandler receives an action chosen on a notification.
type ActionHandler func(ctx context.Context, timerID int64, action domain.Action)

type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Cancel(ctx context.Context, timerID int64) error
}

// LogNotifier writes notifications to the log. It is the fallback when no
// desktop notification service is available.
type LogNotifier struct {
	Logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Show(_ context.Context, note Notification) error {
	n.Logger.Info("notification", "timer_id", note.TimerID, "title", note.Title, "body", note.Body)
	return nil
}

func (n *LogNotifier) Cancel(_ context.Context, timerID int64) error {
	n.Logger.Debug("notification cancelled", "timer_id", timerID)
	return nil
}

// Multi fans out to several notifiers. Every notifier is tried; errors are
// joined.
type Multi []Notifier

func (m Multi) Show(ctx context.Context, n Notification) error {
	var errs []error
	for _, x := range m {
		if err := x.Show(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Cancel(ctx context.Context, timerID int64) error {
	var errs []error
	for _, x := range m {
		if err := x.Cancel(ctx, timerID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
