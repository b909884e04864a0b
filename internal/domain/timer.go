package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidDuration = errors.New("duration must be greater than zero")
	ErrTimerFinished   = errors.New("timer has finished; reset it first")
)

// Timer is one user-created countdown. All timestamps are milliseconds;
// wall-clock fields are Unix epoch, realtime fields are boot-relative.
type Timer struct {
	ID            int64  `json:"id"`
	Label         string `json:"label"`
	TotalMs       int64  `json:"totalMs"`
	AccumulatedMs int64  `json:"accumulatedMs"`

	// Open run segment; both are set iff IsRunning.
	StartedRealtimeMs  *int64 `json:"startedRealtimeMs,omitempty"`
	SegmentWallClockMs *int64 `json:"segmentWallClockMs,omitempty"`

	// First run, frozen until Reset.
	StartedWallClockMs *int64 `json:"startedWallClockMs,omitempty"`

	IsRunning bool `json:"isRunning"`

	FinishedWallClockMs *int64 `json:"finishedWallClockMs,omitempty"`
	Alerted             bool   `json:"alerted"`
	Silenced            bool   `json:"silenced"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewTimer builds a never-started timer. A blank label becomes "Timer <id>".
func NewTimer(id int64, label string, total time.Duration, createdAt time.Time) (*Timer, error) {
	if total.Milliseconds() <= 0 {
		return nil, ErrInvalidDuration
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = fmt.Sprintf("Timer %d", id)
	}
	return &Timer{
		ID:        id,
		Label:     label,
		TotalMs:   total.Milliseconds(),
		CreatedAt: createdAt.UTC(),
	}, nil
}

// Status derives the display state of the timer.
func (t *Timer) Status() TimerStatus {
	switch {
	case t.FinishedWallClockMs != nil:
		return TimerFinished
	case t.IsRunning:
		return TimerRunning
	case t.StartedWallClockMs != nil || t.AccumulatedMs > 0:
		return TimerPaused
	default:
		return TimerIdle
	}
}

func (t *Timer) IsFinished() bool {
	return t.FinishedWallClockMs != nil
}

// segmentMs is the length of the open run segment. The realtime and
// wall-clock deltas are both measured; a negative delta means that clock
// was reset (reboot) or set backwards and is ignored. With two usable
// deltas the smaller wins.
func (t *Timer) segmentMs(now Instant) int64 {
	if !t.IsRunning || t.StartedRealtimeMs == nil {
		return 0
	}
	rt := now.RealtimeMs - *t.StartedRealtimeMs
	if t.SegmentWallClockMs == nil {
		return max(rt, 0)
	}
	wall := now.WallMs - *t.SegmentWallClockMs
	switch {
	case rt >= 0 && wall >= 0:
		return min(rt, wall)
	case rt >= 0:
		return rt
	case wall >= 0:
		return wall
	default:
		return 0
	}
}

// ElapsedMs returns counted time, clamped to [0, TotalMs].
func (t *Timer) ElapsedMs(now Instant) int64 {
	e := t.AccumulatedMs + t.segmentMs(now)
	if e < 0 {
		return 0
	}
	return min(e, t.TotalMs)
}

// RemainingMs returns TotalMs minus elapsed, never negative.
func (t *Timer) RemainingMs(now Instant) int64 {
	return max(t.TotalMs-t.ElapsedMs(now), 0)
}

// Due reports whether a running, unfinished timer has used its duration.
func (t *Timer) Due(now Instant) bool {
	return t.IsRunning && t.FinishedWallClockMs == nil &&
		t.AccumulatedMs+t.segmentMs(now) >= t.TotalMs
}

// WakeAt is the absolute wall-clock time the current segment runs out.
// The zero time is returned when the timer is not running.
func (t *Timer) WakeAt() time.Time {
	if !t.IsRunning || t.SegmentWallClockMs == nil {
		return time.Time{}
	}
	return time.UnixMilli(*t.SegmentWallClockMs + (t.TotalMs - t.AccumulatedMs))
}

// WillStopAt is the "will stop" display value: the frozen finish time,
// or now+remaining once the timer has been started at least once.
func (t *Timer) WillStopAt(now Instant) *time.Time {
	if t.FinishedWallClockMs != nil {
		ts := time.UnixMilli(*t.FinishedWallClockMs)
		return &ts
	}
	if t.StartedWallClockMs == nil {
		return nil
	}
	ts := time.UnixMilli(now.WallMs + t.RemainingMs(now))
	return &ts
}

// StartedAt returns the first-run wall clock time, if any.
func (t *Timer) StartedAt() *time.Time {
	if t.StartedWallClockMs == nil {
		return nil
	}
	ts := time.UnixMilli(*t.StartedWallClockMs)
	return &ts
}

// Start opens a run segment. It reports false when the timer is already
// running and fails on a finished timer.
func (t *Timer) Start(now Instant) (bool, error) {
	if t.FinishedWallClockMs != nil {
		return false, ErrTimerFinished
	}
	if t.IsRunning {
		return false, nil
	}
	t.IsRunning = true
	t.StartedRealtimeMs = ptr(now.RealtimeMs)
	t.SegmentWallClockMs = ptr(now.WallMs)
	if t.StartedWallClockMs == nil {
		t.StartedWallClockMs = ptr(now.WallMs)
	}
	return true, nil
}

// Pause folds the open segment into AccumulatedMs. A pause that reaches
// the duration stamps the finish at the moment the segment ran out.
// A paused finished timer has its alert silenced.
func (t *Timer) Pause(now Instant) bool {
	if !t.IsRunning {
		if t.Alerted && !t.Silenced {
			t.Silenced = true
			return true
		}
		return false
	}
	prev := t.AccumulatedMs
	t.AccumulatedMs = min(prev+t.segmentMs(now), t.TotalMs)
	if t.AccumulatedMs >= t.TotalMs && t.FinishedWallClockMs == nil && t.SegmentWallClockMs != nil {
		t.FinishedWallClockMs = ptr(*t.SegmentWallClockMs + (t.TotalMs - prev))
	}
	t.closeSegment()
	if t.Alerted {
		t.Silenced = true
	}
	return true
}

// Finish stamps the finish time once and closes the segment. It reports
// false if the timer was already finished or is not yet due.
func (t *Timer) Finish(now Instant) bool {
	if t.FinishedWallClockMs != nil || !t.Due(now) {
		return false
	}
	t.FinishedWallClockMs = ptr(now.WallMs)
	t.AccumulatedMs = t.TotalMs
	t.closeSegment()
	return true
}

// MarkAlerted records that the one-time alert went out for this finish.
func (t *Timer) MarkAlerted() bool {
	if t.FinishedWallClockMs == nil || t.Alerted {
		return false
	}
	t.Alerted = true
	return true
}

// Silence marks an active alert silenced.
func (t *Timer) Silence() bool {
	if !t.Alerted || t.Silenced {
		return false
	}
	t.Silenced = true
	return true
}

// Reset returns the timer to the never-started state.
func (t *Timer) Reset() bool {
	if t.Status() == TimerIdle && !t.Alerted && !t.Silenced {
		return false
	}
	t.AccumulatedMs = 0
	t.closeSegment()
	t.StartedWallClockMs = nil
	t.FinishedWallClockMs = nil
	t.Alerted = false
	t.Silenced = false
	return true
}

// Edit changes the label and/or duration. A duration longer than the
// time already counted un-finishes the timer.
func (t *Timer) Edit(now Instant, label *string, total *time.Duration) error {
	if total != nil && total.Milliseconds() <= 0 {
		return ErrInvalidDuration
	}
	if label != nil {
		if l := strings.TrimSpace(*label); l != "" {
			t.Label = l
		}
	}
	if total == nil {
		return nil
	}
	counted := t.AccumulatedMs + t.segmentMs(now)
	t.TotalMs = total.Milliseconds()
	if t.AccumulatedMs > t.TotalMs {
		t.AccumulatedMs = t.TotalMs
	}
	if t.FinishedWallClockMs != nil && counted < t.TotalMs {
		t.FinishedWallClockMs = nil
		t.Alerted = false
		t.Silenced = false
	}
	return nil
}

func (t *Timer) closeSegment() {
	t.IsRunning = false
	t.StartedRealtimeMs = nil
	t.SegmentWallClockMs = nil
}

func ptr(v int64) *int64 { return &v }
