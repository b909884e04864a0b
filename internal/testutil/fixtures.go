package testutil

import (
	"time"

	"github.com/alexanderramin/multitimer/internal/clock"
	"github.com/alexanderramin/multitimer/internal/domain"
)

// Epoch is the wall-clock start of every fake clock built here.
var Epoch = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// EpochRealtimeMs is the boot-clock reading paired with Epoch.
const EpochRealtimeMs = 5_000_000

// NewFakeClock returns a clock.Fake positioned at Epoch.
func NewFakeClock() *clock.Fake {
	return clock.NewFake(Epoch, EpochRealtimeMs)
}

// Timer options
type TimerOption func(*domain.Timer, domain.Instant)

func WithLabel(l string) TimerOption {
	return func(t *domain.Timer, _ domain.Instant) {
		t.Label = l
	}
}

func WithDuration(d time.Duration) TimerOption {
	return func(t *domain.Timer, _ domain.Instant) {
		t.TotalMs = d.Milliseconds()
	}
}

// Started opens a run segment at the fixture instant.
func Started() TimerOption {
	return func(t *domain.Timer, now domain.Instant) {
		_, _ = t.Start(now)
	}
}

// StartedAgo opens a run segment d before the fixture instant.
func StartedAgo(d time.Duration) TimerOption {
	return func(t *domain.Timer, now domain.Instant) {
		_, _ = t.Start(now.Add(-d))
	}
}

// Finished runs the timer to completion at the fixture instant.
func Finished() TimerOption {
	return func(t *domain.Timer, now domain.Instant) {
		start := now.Add(-time.Duration(t.TotalMs) * time.Millisecond)
		_, _ = t.Start(start)
		t.Finish(now)
	}
}

// Alerted runs the timer to completion and marks the alert dispatched.
func Alerted() TimerOption {
	return func(t *domain.Timer, now domain.Instant) {
		Finished()(t, now)
		t.MarkAlerted()
	}
}

// NewTestTimer builds a timer as it would look at instant now.
// Defaults: label "Test <id>", five seconds, idle.
func NewTestTimer(id int64, now domain.Instant, opts ...TimerOption) *domain.Timer {
	t, err := domain.NewTimer(id, "", 5*time.Second, now.Time())
	if err != nil {
		panic(err)
	}
	t.Label = "Test " + t.Label[len("Timer "):]
	for _, opt := range opts {
		opt(t, now)
	}
	return t
}

// NewTestRegistry wraps timers in a registry whose counter follows the
// highest id.
func NewTestRegistry(timers ...*domain.Timer) *domain.Registry {
	r := domain.NewRegistry()
	for _, t := range timers {
		r.Timers = append(r.Timers, t)
		if t.ID >= r.NextID {
			r.NextID = t.ID + 1
		}
	}
	return r
}
