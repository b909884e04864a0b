package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = Instant{WallMs: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC).UnixMilli(), RealtimeMs: 1_000_000}

func at(ms int64) Instant {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func newFiveSecond(t *testing.T) *Timer {
	t.Helper()
	tm, err := NewTimer(1, "Tea", 5*time.Second, t0.Time())
	require.NoError(t, err)
	return tm
}

func TestNewTimer_RejectsNonPositiveDuration(t *testing.T) {
	_, err := NewTimer(1, "x", 0, t0.Time())
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = NewTimer(1, "x", -time.Second, t0.Time())
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestNewTimer_BlankLabelGetsDefault(t *testing.T) {
	tm, err := NewTimer(7, "   ", time.Minute, t0.Time())
	require.NoError(t, err)
	assert.Equal(t, "Timer 7", tm.Label)
	assert.Equal(t, TimerIdle, tm.Status())
}

func TestElapsed_PauseResumeExample(t *testing.T) {
	tm := newFiveSecond(t)

	changed, err := tm.Start(at(0))
	require.NoError(t, err)
	require.True(t, changed)

	assert.Equal(t, int64(3000), tm.ElapsedMs(at(3000)))
	assert.Equal(t, int64(2000), tm.RemainingMs(at(3000)))

	require.True(t, tm.Pause(at(3000)))
	assert.Equal(t, int64(3000), tm.AccumulatedMs)
	assert.Nil(t, tm.StartedRealtimeMs)
	assert.Equal(t, TimerPaused, tm.Status())

	// The paused interval is not counted.
	assert.Equal(t, int64(3000), tm.ElapsedMs(at(9000)))

	_, err = tm.Start(at(10000))
	require.NoError(t, err)
	assert.Equal(t, int64(3000), tm.ElapsedMs(at(10000)))
	assert.Equal(t, int64(3500), tm.ElapsedMs(at(10500)))
}

func TestElapsed_MonotonicWhileRunningAndBounded(t *testing.T) {
	tm := newFiveSecond(t)
	_, err := tm.Start(at(0))
	require.NoError(t, err)

	prev := int64(-1)
	for ms := int64(0); ms <= 8000; ms += 250 {
		e := tm.ElapsedMs(at(ms))
		assert.GreaterOrEqual(t, e, prev, "elapsed went backwards at %d", ms)
		assert.GreaterOrEqual(t, e, int64(0))
		assert.LessOrEqual(t, e, tm.TotalMs)
		prev = e
	}
}

func TestElapsed_UsesSmallerOfRealtimeAndWallDeltas(t *testing.T) {
	tm := newFiveSecond(t)
	_, err := tm.Start(at(0))
	require.NoError(t, err)

	// Wall clock jumped forward an hour; realtime only advanced 1s.
	now := Instant{WallMs: t0.WallMs + time.Hour.Milliseconds(), RealtimeMs: t0.RealtimeMs + 1000}
	assert.Equal(t, int64(1000), tm.ElapsedMs(now))
}

func TestElapsed_RebootFallsBackToWallClock(t *testing.T) {
	tm := newFiveSecond(t)
	_, err := tm.Start(at(0))
	require.NoError(t, err)

	// After a reboot the boot clock restarts near zero.
	now := Instant{WallMs: t0.WallMs + 2000, RealtimeMs: 50}
	assert.Equal(t, int64(2000), tm.ElapsedMs(now))
}

func TestElapsed_ClockSetBackwardsUsesRealtime(t *testing.T) {
	tm := newFiveSecond(t)
	_, err := tm.Start(at(0))
	require.NoError(t, err)

	now := Instant{WallMs: t0.WallMs - time.Hour.Milliseconds(), RealtimeMs: t0.RealtimeMs + 1500}
	assert.Equal(t, int64(1500), tm.ElapsedMs(now))
}

func TestElapsed_NeverNegative(t *testing.T) {
	tm := newFiveSecond(t)
	_, err := tm.Start(at(0))
	require.NoError(t, err)

	now := Instant{WallMs: t0.WallMs - 1000, RealtimeMs: 0}
	assert.Equal(t, int64(0), tm.ElapsedMs(now))
}

func TestStart_AlreadyRunningIsNoop(t *testing.T) {
	tm := newFiveSecond(t)
	_, err := tm.Start(at(0))
	require.NoError(t, err)

	before := *tm
	changed, err := tm.Start(at(1000))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, *before.StartedRealtimeMs, *tm.StartedRealtimeMs, "segment must not be reopened")
}

func TestStart_StartedWallClockFrozenOnResume(t *testing.T) {
	tm := newFiveSecond(t)
	_, _ = tm.Start(at(0))
	tm.Pause(at(1000))
	_, _ = tm.Start(at(4000))

	require.NotNil(t, tm.StartedWallClockMs)
	assert.Equal(t, t0.WallMs, *tm.StartedWallClockMs)
	require.NotNil(t, tm.SegmentWallClockMs)
	assert.Equal(t, at(4000).WallMs, *tm.SegmentWallClockMs)
}

func TestStart_FinishedTimerFails(t *testing.T) {
	tm := newFiveSecond(t)
	_, _ = tm.Start(at(0))
	require.True(t, tm.Finish(at(5000)))

	_, err := tm.Start(at(6000))
	assert.ErrorIs(t, err, ErrTimerFinished)
}

func TestWakeAt_MeasuredFromCurrentSegment(t *testing.T) {
	tm := newFiveSecond(t)
	assert.True(t, tm.WakeAt().IsZero())

	_, _ = tm.Start(at(0))
	assert.Equal(t, at(5000).WallMs, tm.WakeAt().UnixMilli())

	tm.Pause(at(3000))
	assert.True(t, tm.WakeAt().IsZero())

	_, _ = tm.Start(at(10000))
	assert.Equal(t, at(12000).WallMs, tm.WakeAt().UnixMilli())
}

func TestFinish_StampsOnceAndClosesSegment(t *testing.T) {
	tm := newFiveSecond(t)
	_, _ = tm.Start(at(0))

	assert.False(t, tm.Finish(at(4999)), "not due yet")
	require.True(t, tm.Finish(at(5100)))

	require.NotNil(t, tm.FinishedWallClockMs)
	assert.Equal(t, at(5100).WallMs, *tm.FinishedWallClockMs)
	assert.False(t, tm.IsRunning)
	assert.Equal(t, tm.TotalMs, tm.AccumulatedMs)
	assert.Equal(t, TimerFinished, tm.Status())

	assert.False(t, tm.Finish(at(9000)))
	assert.Equal(t, at(5100).WallMs, *tm.FinishedWallClockMs, "finish time is frozen")
	assert.Equal(t, tm.TotalMs, tm.ElapsedMs(at(20000)))
}

func TestMarkAlerted_RequiresFinishAndIsOnce(t *testing.T) {
	tm := newFiveSecond(t)
	assert.False(t, tm.MarkAlerted(), "cannot alert an unfinished timer")

	_, _ = tm.Start(at(0))
	tm.Finish(at(5000))

	assert.True(t, tm.MarkAlerted())
	assert.False(t, tm.MarkAlerted())
}

func TestSilence_TwiceIsNoop(t *testing.T) {
	tm := newFiveSecond(t)
	_, _ = tm.Start(at(0))
	tm.Finish(at(5000))
	tm.MarkAlerted()

	assert.True(t, tm.Silence())
	snapshot := *tm
	assert.False(t, tm.Silence())
	assert.Empty(t, cmp.Diff(snapshot, *tm))
}

func TestPause_CrossingDurationStampsProjectedFinish(t *testing.T) {
	tm := newFiveSecond(t)
	_, _ = tm.Start(at(0))

	require.True(t, tm.Pause(at(7000)))
	require.NotNil(t, tm.FinishedWallClockMs)
	assert.Equal(t, at(5000).WallMs, *tm.FinishedWallClockMs)
	assert.Equal(t, tm.TotalMs, tm.AccumulatedMs)
}

func TestPause_FinishedAlertingTimerSilences(t *testing.T) {
	tm := newFiveSecond(t)
	_, _ = tm.Start(at(0))
	tm.Finish(at(5000))
	tm.MarkAlerted()

	assert.True(t, tm.Pause(at(6000)))
	assert.True(t, tm.Silenced)
	assert.False(t, tm.Pause(at(7000)))
}

func TestReset_FromEveryState(t *testing.T) {
	idle := func() *Timer { return newFiveSecond(t) }
	running := func() *Timer { tm := idle(); _, _ = tm.Start(at(0)); return tm }
	paused := func() *Timer { tm := running(); tm.Pause(at(2000)); return tm }
	finished := func() *Timer {
		tm := running()
		tm.Finish(at(5000))
		tm.MarkAlerted()
		tm.Silence()
		return tm
	}

	want := newFiveSecond(t)
	for name, mk := range map[string]func() *Timer{
		"idle": idle, "running": running, "paused": paused, "finished": finished,
	} {
		t.Run(name, func(t *testing.T) {
			tm := mk()
			tm.Reset()
			assert.Empty(t, cmp.Diff(*want, *tm), "reset must return to never-started state")
			assert.Equal(t, TimerIdle, tm.Status())
		})
	}
}

func TestReset_IdleIsNoop(t *testing.T) {
	tm := newFiveSecond(t)
	assert.False(t, tm.Reset())
}

func TestEdit_ExtendingFinishedTimerUnfinishes(t *testing.T) {
	tm := newFiveSecond(t)
	_, _ = tm.Start(at(0))
	tm.Finish(at(5000))
	tm.MarkAlerted()

	longer := 10 * time.Second
	require.NoError(t, tm.Edit(at(6000), nil, &longer))

	assert.Nil(t, tm.FinishedWallClockMs)
	assert.False(t, tm.Alerted)
	assert.Equal(t, TimerPaused, tm.Status())
	assert.Equal(t, int64(5000), tm.RemainingMs(at(6000)))
}

func TestEdit_ShorterThanAccumulatedClamps(t *testing.T) {
	tm := newFiveSecond(t)
	_, _ = tm.Start(at(0))
	tm.Pause(at(4000))

	shorter := 2 * time.Second
	require.NoError(t, tm.Edit(at(5000), nil, &shorter))
	assert.Equal(t, int64(2000), tm.AccumulatedMs)
	assert.Equal(t, int64(0), tm.RemainingMs(at(5000)))
}

func TestEdit_RejectsBadDurationAndKeepsLabelOnBlank(t *testing.T) {
	tm := newFiveSecond(t)

	zero := time.Duration(0)
	assert.ErrorIs(t, tm.Edit(at(0), nil, &zero), ErrInvalidDuration)

	blank := "  "
	require.NoError(t, tm.Edit(at(0), &blank, nil))
	assert.Equal(t, "Tea", tm.Label)

	name := "Green tea"
	require.NoError(t, tm.Edit(at(0), &name, nil))
	assert.Equal(t, "Green tea", tm.Label)
}

func TestWillStopAt(t *testing.T) {
	tm := newFiveSecond(t)
	assert.Nil(t, tm.WillStopAt(at(0)))

	_, _ = tm.Start(at(0))
	ws := tm.WillStopAt(at(1000))
	require.NotNil(t, ws)
	assert.Equal(t, at(5000).WallMs, ws.UnixMilli())

	tm.Finish(at(5200))
	ws = tm.WillStopAt(at(60000))
	require.NotNil(t, ws)
	assert.Equal(t, at(5200).WallMs, ws.UnixMilli(), "frozen after finish")
}
