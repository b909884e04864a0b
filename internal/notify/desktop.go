package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/multitimer/internal/domain"
)

// commandRunner runs a command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// withdrawGrace bounds how long a withdrawn notify-send may take to exit
// before it is killed and its pipes are closed.
const withdrawGrace = 2 * time.Second

// execRunner interrupts the command when ctx ends: notify-send --wait only
// closes its notification on SIGINT, and SIGKILL would leave it on screen.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = withdrawGrace
	return cmd.Output()
}

// DesktopNotifier shows notifications with notify-send. Each notification
// is a "notify-send --wait" process; the action the user clicks is printed
// on stdout and handed to the ActionHandler.
type DesktopNotifier struct {
	bin     string
	appName string
	handler ActionHandler
	logger  *slog.Logger
	run     commandRunner

	mu      sync.Mutex
	pending map[int64]*pendingNote
	wg      sync.WaitGroup
}

type pendingNote struct {
	cancel context.CancelFunc
}

// NewDesktopNotifier finds notify-send on PATH.
func NewDesktopNotifier(handler ActionHandler, logger *slog.Logger) (*DesktopNotifier, error) {
	bin, err := exec.LookPath("notify-send")
	if err != nil {
		return nil, fmt.Errorf("desktop notifications: %w", err)
	}
	return newDesktopNotifier(bin, handler, logger, execRunner), nil
}

func newDesktopNotifier(bin string, handler ActionHandler, logger *slog.Logger, run commandRunner) *DesktopNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DesktopNotifier{
		bin:     bin,
		appName: "multitimer",
		handler: handler,
		logger:  logger,
		run:     run,
		pending: make(map[int64]*pendingNote),
	}
}

func (d *DesktopNotifier) args(n Notification) []string {
	args := []string{
		"--wait",
		"--app-name=" + d.appName,
		"--urgency=critical",
		"--icon=alarm-symbolic",
	}
	for _, a := range n.Actions {
		args = append(args, fmt.Sprintf("--action=%s=%s", a, actionTitle(a)))
	}
	return append(args, n.Title, n.Body)
}

func actionTitle(a domain.Action) string {
	s := string(a)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Show replaces any notification already shown for the timer.
func (d *DesktopNotifier) Show(ctx context.Context, n Notification) error {
	// The process outlives the caller's request.
	noteCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	note := &pendingNote{cancel: cancel}

	d.mu.Lock()
	if old, ok := d.pending[n.TimerID]; ok {
		old.cancel()
	}
	d.pending[n.TimerID] = note
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.forget(n.TimerID, note)

		out, err := d.run(noteCtx, d.bin, d.args(n)...)
		if noteCtx.Err() != nil {
			return
		}
		if err != nil {
			d.logger.Warn("notify-send failed", "timer_id", n.TimerID, "error", err)
			return
		}
		choice := strings.TrimSpace(string(out))
		action, ok := domain.ParseAction(choice)
		if !ok {
			// Dismissed without choosing an action.
			return
		}
		d.logger.Info("notification action", "timer_id", n.TimerID, "action", string(action))
		if d.handler != nil {
			d.handler(context.WithoutCancel(noteCtx), n.TimerID, action)
		}
	}()
	return nil
}

func (d *DesktopNotifier) forget(id int64, note *pendingNote) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[id] == note {
		delete(d.pending, id)
	}
	note.cancel()
}

// Cancel withdraws the notification for the timer, if any.
func (d *DesktopNotifier) Cancel(_ context.Context, timerID int64) error {
	d.mu.Lock()
	note, ok := d.pending[timerID]
	if ok {
		delete(d.pending, timerID)
	}
	d.mu.Unlock()
	if ok {
		note.cancel()
	}
	return nil
}

// Close withdraws every notification and waits for the processes to exit.
func (d *DesktopNotifier) Close() {
	d.mu.Lock()
	for id, note := range d.pending {
		note.cancel()
		delete(d.pending, id)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
