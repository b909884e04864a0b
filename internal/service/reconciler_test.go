package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/multitimer/internal/alert"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/repository"
	"github.com/alexanderramin/multitimer/internal/scheduler"
	"github.com/alexanderramin/multitimer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_FiveSecondExample(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("Tea", 5*time.Second, true)

	h.clk.Advance(3 * time.Second)
	require.NoError(t, h.router.Apply(ctx, tm.ID, domain.ActionPause, domain.SourceApp))
	got := h.get(tm.ID)
	assert.Equal(t, int64(3000), got.AccumulatedMs)
	assert.Equal(t, int64(2000), got.RemainingMs(h.clk.Now()))

	h.clk.Advance(10 * time.Second)
	_, err := h.timers.Start(ctx, tm.ID)
	require.NoError(t, err)

	h.clk.Advance(1999 * time.Millisecond)
	finished, err := h.rec.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, finished)

	h.clk.Advance(time.Millisecond)
	finished, err = h.rec.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{tm.ID}, finished)

	got = h.get(tm.ID)
	assert.Equal(t, domain.TimerFinished, got.Status())
	assert.True(t, got.Alerted)
	assert.Equal(t, h.clk.Now().WallMs, *got.FinishedWallClockMs)
	assert.Equal(t, []int64{tm.ID}, h.alerts.startedIDs())
	assert.Equal(t, []int64{tm.ID}, h.notes.shownIDs())
	assert.Nil(t, h.wake(tm.ID), "finishing cancels the wake alarm")
}

func TestReconciler_TickIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("Tea", time.Second, true)

	h.clk.Advance(2 * time.Second)
	for i := 0; i < 3; i++ {
		_, err := h.rec.Tick(ctx)
		require.NoError(t, err)
		h.clk.Advance(200 * time.Millisecond)
	}

	assert.Equal(t, 1, h.count(tm.ID, domain.EventFinished))
	assert.Equal(t, 1, h.count(tm.ID, domain.EventAlertDispatched))
	assert.Len(t, h.alerts.startedIDs(), 1)
}

func TestReconciler_TickAndWakeRaceAlertsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("Tea", time.Second, true)
	other := h.newProcess()

	h.clk.Advance(time.Second)
	payload := domain.WakePayload{TimerID: tm.ID}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := h.rec.Tick(ctx)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, other.rec.HandleWake(ctx, payload))
	}()
	wg.Wait()

	total := len(h.alerts.startedIDs()) + len(other.alerts.startedIDs())
	assert.Equal(t, 1, total, "exactly one process plays the alert")
	assert.Equal(t, 1, h.count(tm.ID, domain.EventAlertDispatched))
	assert.Equal(t, 1, len(h.notes.shownIDs())+len(other.notes.shownIDs()))
}

func TestReconciler_LateWakeKeepsFirstFinishTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("Tea", 5*time.Second, true)

	h.clk.Advance(5100 * time.Millisecond)
	_, err := h.rec.Tick(ctx)
	require.NoError(t, err)
	stamped := *h.get(tm.ID).FinishedWallClockMs

	h.clk.Advance(2 * time.Second)
	require.NoError(t, h.rec.HandleWake(ctx, domain.WakePayload{TimerID: tm.ID}))

	got := h.get(tm.ID)
	assert.Equal(t, stamped, *got.FinishedWallClockMs)
	assert.Equal(t, got.TotalMs, got.ElapsedMs(h.clk.Now()))
	assert.Len(t, h.alerts.startedIDs(), 1)
}

func TestReconciler_WakeFinishesWithDeliveryTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("Tea", 5*time.Second, true)

	h.clk.Advance(5200 * time.Millisecond)
	require.NoError(t, h.rec.HandleWake(ctx, domain.WakePayload{TimerID: tm.ID}))

	got := h.get(tm.ID)
	assert.Equal(t, h.clk.Now().WallMs, *got.FinishedWallClockMs)
	assert.Equal(t, []domain.EventKind{
		domain.EventCreated, domain.EventStarted, domain.EventFinished, domain.EventAlertDispatched,
	}, h.kinds(tm.ID))

	events, err := repository.NewSQLiteEventRepo(h.db).ListByTimer(ctx, tm.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceWake, events[0].Source)
}

func TestReconciler_EarlyWakeReschedules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("Tea", 5*time.Second, true)

	h.clk.Advance(4 * time.Second)
	require.NoError(t, h.rec.HandleWake(ctx, domain.WakePayload{TimerID: tm.ID}))

	assert.Equal(t, domain.TimerRunning, h.get(tm.ID).Status())
	a := h.wake(tm.ID)
	require.NotNil(t, a)
	assert.Equal(t, h.clk.Now().WallMs+1000, a.FireAt.UnixMilli())
	assert.Empty(t, h.alerts.startedIDs())
}

func TestReconciler_WakeIgnoredForUnknownOrPaused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("Tea", time.Second, true)
	require.NoError(t, h.router.Apply(ctx, tm.ID, domain.ActionPause, domain.SourceApp))

	h.clk.Advance(time.Minute)
	require.NoError(t, h.rec.HandleWake(ctx, domain.WakePayload{TimerID: 77}))
	require.NoError(t, h.rec.HandleWake(ctx, domain.WakePayload{TimerID: tm.ID}))

	assert.Equal(t, domain.TimerPaused, h.get(tm.ID).Status())
	assert.Empty(t, h.alerts.startedIDs())
}

func TestReconciler_WakeAfterClockSetBackwardsUsesRealtime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("Tea", 10*time.Second, true)

	now := h.clk.Now()
	h.clk.Set(domain.Instant{WallMs: now.WallMs - time.Hour.Milliseconds(), RealtimeMs: now.RealtimeMs + 4000})
	require.NoError(t, h.rec.HandleWake(ctx, domain.WakePayload{TimerID: tm.ID}))

	a := h.wake(tm.ID)
	require.NotNil(t, a)
	assert.Equal(t, h.clk.Now().WallMs+6000, a.FireAt.UnixMilli(), "fires when the counted time runs out")
}

func TestReconciler_RearmAfterReboot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	long := h.add("Roast", time.Hour, true)
	short := h.add("Tea", 10*time.Second, true)
	idle := h.add("Idle", time.Minute, false)

	// Stray alarm for a timer that is not running.
	require.NoError(t, scheduler.NewPersistent(repository.NewSQLiteWakeAlarmRepo(h.db)).
		Schedule(ctx, idle.ID, h.clk.Now().Time(), domain.WakePayload{}))

	// Reboot: the boot clock restarts, 30 wall seconds have passed.
	now := h.clk.Now()
	h.clk.Set(domain.Instant{WallMs: now.WallMs + 30_000, RealtimeMs: 1_000})

	res, err := h.rec.Rearm(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{short.ID}, res.Finished)
	assert.Equal(t, []int64{long.ID}, res.Armed)
	assert.Equal(t, []int64{idle.ID}, res.Dropped)

	a := h.wake(long.ID)
	require.NotNil(t, a)
	assert.Equal(t, h.clk.Now().WallMs+time.Hour.Milliseconds()-30_000, a.FireAt.UnixMilli())
	assert.Nil(t, h.wake(short.ID))
	assert.Nil(t, h.wake(idle.ID))
	assert.Equal(t, []int64{short.ID}, h.alerts.startedIDs())
	assert.Equal(t, domain.SourceBoot, lastEvent(t, h, short.ID).Source)
}

func lastEvent(t *testing.T, h *harness, id int64) *domain.TimerEvent {
	t.Helper()
	events, err := repository.NewSQLiteEventRepo(h.db).ListByTimer(context.Background(), id, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	return events[0]
}

func TestReconciler_SyncAlertsStopsActionsFromOtherProcess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.add("A", time.Second, true)
	b := h.add("B", time.Second, true)
	c := h.add("C", time.Second, true)
	h.clk.Advance(time.Second)
	_, err := h.rec.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{a.ID, b.ID, c.ID}, h.alerts.ActiveIDs())

	// A one-shot CLI process with no alert playback.
	cli := NewActionRouter(h.uow, h.clk, NewAlertHub(nil, nil, quietLogger()), quietLogger())
	require.NoError(t, cli.Apply(ctx, a.ID, domain.ActionSilence, domain.SourceApp))
	require.NoError(t, cli.Apply(ctx, b.ID, domain.ActionReset, domain.SourceApp))
	other := h.newProcess()
	require.NoError(t, other.timers.Delete(ctx, c.ID))

	require.NoError(t, h.rec.SyncAlerts(ctx))
	assert.Empty(t, h.alerts.ActiveIDs())
	assert.ElementsMatch(t, []int64{a.ID, b.ID, c.ID}, h.notes.cancelledIDs())
}

func TestReconciler_SyncAlertsKeepsActiveAlerts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("A", time.Second, true)
	h.clk.Advance(time.Second)
	_, err := h.rec.Tick(ctx)
	require.NoError(t, err)

	require.NoError(t, h.rec.SyncAlerts(ctx))
	assert.True(t, h.alerts.isActive(tm.ID))
	assert.Empty(t, h.notes.cancelledIDs())
}

func TestReconciler_AlertTimeoutCancelsNotification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("A", time.Second, true)
	h.clk.Advance(time.Second)
	_, err := h.rec.Tick(ctx)
	require.NoError(t, err)

	h.rec.HandleAlertEnd(ctx, alert.Request{TimerID: tm.ID}, alert.EndStopped)
	assert.Empty(t, h.notes.cancelledIDs(), "only a timeout withdraws the notification")

	h.rec.HandleAlertEnd(ctx, alert.Request{TimerID: tm.ID}, alert.EndTimeout)
	assert.Equal(t, []int64{tm.ID}, h.notes.cancelledIDs())
	assert.Equal(t, 1, h.count(tm.ID, domain.EventAlertExpired))

	got := h.get(tm.ID)
	assert.True(t, got.Alerted, "a timed-out alert is not replayed")
	assert.False(t, got.Silenced)
}

func TestReconciler_AlertTimeoutWithoutHub(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("A", time.Second, true)
	h.clk.Advance(time.Second)
	_, err := h.rec.Tick(ctx)
	require.NoError(t, err)

	rec := NewReconciler(h.uow, h.clk, nil, quietLogger())
	require.NotPanics(t, func() {
		rec.HandleAlertEnd(ctx, alert.Request{TimerID: tm.ID}, alert.EndTimeout)
	})
	assert.Equal(t, 1, h.count(tm.ID, domain.EventAlertExpired))
	assert.Empty(t, h.notes.cancelledIDs(), "another process's notification is not touched")
}

func TestUnreadableRegistryIsNeverOverwritten(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tm := h.add("A", time.Second, true)
	h.add("B", time.Minute, true)
	h.clk.Advance(time.Second)
	_, err := h.rec.Tick(ctx)
	require.NoError(t, err)
	require.True(t, h.alerts.isActive(tm.ID))

	uow := &testutil.UnreadableRegistryUoW{DB: h.db}
	timers := NewTimerService(uow, h.clk, h.hub, quietLogger())
	rec := NewReconciler(uow, h.clk, h.hub, quietLogger())

	list, err := timers.List(ctx)
	require.NoError(t, err, "reads fall back to an empty list")
	assert.Empty(t, list)

	_, err = timers.Add(ctx, "C", time.Minute, false)
	assert.ErrorIs(t, err, repository.ErrRegistryUnavailable)

	assert.ErrorIs(t, rec.SyncAlerts(ctx), repository.ErrRegistryUnavailable)
	assert.True(t, h.alerts.isActive(tm.ID), "an unreadable store does not look like a deleted timer")

	_, err = rec.Rearm(ctx)
	assert.ErrorIs(t, err, repository.ErrRegistryUnavailable)
	assert.NotNil(t, h.wake(2), "wake alarms survive")

	stored, err := h.timers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
