package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/multitimer/internal/alert"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/notify"
)

// AlertHub is the per-process side of alerting: it plays alerts and shows
// notifications for the finishes this process claimed, and withdraws them
// again. One hub is shared by every service in a process.
//
// A process without an alert service (a one-shot CLI verb) uses a hub with
// nil alerts; it still withdraws notifications it knows about.
type AlertHub struct {
	alerts   AlertController
	notifier notify.Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewAlertHub(alerts AlertController, notifier notify.Notifier, logger *slog.Logger) *AlertHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertHub{
		alerts:   alerts,
		notifier: notifier,
		logger:   logger,
		inFlight: make(map[int64]struct{}),
	}
}

// dispatch plays the alert and shows the notification for a finish this
// process claimed. An id already in flight is skipped.
func (h *AlertHub) dispatch(ctx context.Context, t *domain.Timer) {
	if h == nil {
		return
	}
	h.mu.Lock()
	if _, ok := h.inFlight[t.ID]; ok {
		h.mu.Unlock()
		return
	}
	h.inFlight[t.ID] = struct{}{}
	h.mu.Unlock()

	if h.notifier != nil {
		n := notify.Finished(t.ID, t.Label, time.Duration(t.TotalMs)*time.Millisecond)
		if err := h.notifier.Show(ctx, n); err != nil {
			h.logger.Warn("showing notification failed", "timer_id", t.ID, "error", err)
		}
	}
	if h.alerts != nil {
		h.alerts.Start(alert.Request{
			TimerID:   t.ID,
			Label:     t.Label,
			TotalMs:   t.TotalMs,
			ElapsedMs: t.TotalMs,
		})
	}
}

// withdraw stops the local alert and cancels the notification for id.
func (h *AlertHub) withdraw(ctx context.Context, id int64) {
	if h == nil {
		return
	}
	h.mu.Lock()
	delete(h.inFlight, id)
	h.mu.Unlock()

	if h.alerts != nil {
		h.alerts.Stop(id)
	}
	if h.notifier != nil {
		if err := h.notifier.Cancel(ctx, id); err != nil {
			h.logger.Warn("cancelling notification failed", "timer_id", id, "error", err)
		}
	}
}

// expire handles an alert that ran out on its own: playback is already
// over, so only the notification is withdrawn.
func (h *AlertHub) expire(ctx context.Context, id int64) {
	if h == nil {
		return
	}
	h.forget(id)
	if h.notifier != nil {
		if err := h.notifier.Cancel(ctx, id); err != nil {
			h.logger.Warn("cancelling notification failed", "timer_id", id, "error", err)
		}
	}
}

// forget drops id from the in-flight set without touching playback.
func (h *AlertHub) forget(id int64) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inFlight, id)
}

// tracked returns every id with an alert in flight or playing, ascending.
func (h *AlertHub) tracked() []int64 {
	if h == nil {
		return nil
	}
	seen := make(map[int64]struct{})
	h.mu.Lock()
	for id := range h.inFlight {
		seen[id] = struct{}{}
	}
	h.mu.Unlock()
	if h.alerts != nil {
		for _, id := range h.alerts.ActiveIDs() {
			seen[id] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
