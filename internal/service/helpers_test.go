package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/multitimer/internal/alert"
	"github.com/alexanderramin/multitimer/internal/clock"
	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/notify"
	"github.com/alexanderramin/multitimer/internal/repository"
	"github.com/alexanderramin/multitimer/internal/testutil"
	"github.com/stretchr/testify/require"
)

type fakeAlerts struct {
	mu      sync.Mutex
	active  map[int64]bool
	started []int64
	stopped []int64
}

func newFakeAlerts() *fakeAlerts {
	return &fakeAlerts{active: make(map[int64]bool)}
}

func (f *fakeAlerts) Start(req alert.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active[req.TimerID] {
		return false
	}
	f.active[req.TimerID] = true
	f.started = append(f.started, req.TimerID)
	return true
}

func (f *fakeAlerts) Stop(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active[id] {
		return false
	}
	delete(f.active, id)
	f.stopped = append(f.stopped, id)
	return true
}

func (f *fakeAlerts) ActiveIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id := range f.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *fakeAlerts) startedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.started...)
}

func (f *fakeAlerts) isActive(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[id]
}

type fakeNotifier struct {
	mu        sync.Mutex
	shown     []int64
	cancelled []int64
}

func (f *fakeNotifier) Show(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, n.TimerID)
	return nil
}

func (f *fakeNotifier) Cancel(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeNotifier) shownIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.shown...)
}

func (f *fakeNotifier) cancelledIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.cancelled...)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

// process is one running multitimer process against a shared database.
type process struct {
	alerts *fakeAlerts
	notes  *fakeNotifier
	hub    *AlertHub
	timers TimerService
	router ActionRouter
	rec    Reconciler
}

type harness struct {
	t   *testing.T
	db  *sql.DB
	uow db.UnitOfWork
	clk *clock.Fake
	obs *recordingObserver
	process
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database := testutil.NewTestDB(t)
	h := &harness{
		t:   t,
		db:  database,
		uow: testutil.NewTestUoW(database),
		clk: testutil.NewFakeClock(),
		obs: &recordingObserver{},
	}
	h.process = h.newProcess()
	return h
}

// newProcess builds another process sharing the harness database and clock.
func (h *harness) newProcess() process {
	alerts := newFakeAlerts()
	notes := &fakeNotifier{}
	hub := NewAlertHub(alerts, notes, quietLogger())
	return process{
		alerts: alerts,
		notes:  notes,
		hub:    hub,
		timers: NewTimerService(h.uow, h.clk, hub, quietLogger(), h.obs),
		router: NewActionRouter(h.uow, h.clk, hub, quietLogger(), h.obs),
		rec:    NewReconciler(h.uow, h.clk, hub, quietLogger(), h.obs),
	}
}

func (h *harness) add(label string, d time.Duration, start bool) *domain.Timer {
	h.t.Helper()
	tm, err := h.timers.Add(context.Background(), label, d, start)
	require.NoError(h.t, err)
	return tm
}

func (h *harness) get(id int64) *domain.Timer {
	h.t.Helper()
	tm, err := h.timers.Get(context.Background(), id)
	require.NoError(h.t, err)
	return tm
}

func (h *harness) wake(id int64) *domain.WakeAlarm {
	h.t.Helper()
	a, err := repository.NewSQLiteWakeAlarmRepo(h.db).Get(context.Background(), id)
	if err != nil {
		return nil
	}
	return a
}

func (h *harness) kinds(id int64) []domain.EventKind {
	h.t.Helper()
	events, err := repository.NewSQLiteEventRepo(h.db).ListByTimer(context.Background(), id, 0)
	require.NoError(h.t, err)
	kinds := make([]domain.EventKind, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		kinds = append(kinds, events[i].Kind)
	}
	return kinds
}

func (h *harness) count(id int64, kind domain.EventKind) int {
	n := 0
	for _, k := range h.kinds(id) {
		if k == kind {
			n++
		}
	}
	return n
}
