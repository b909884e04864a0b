// Package alert plays the finish alert for a timer: a looped sound and a
// repeating vibration pattern, bounded to a timeout or until stopped.
//
// At most one alert per timer id is active in a process. Either modality
// may be missing or fail to start; the other still runs.
package alert

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultTimeout bounds an alert nobody responds to.
const DefaultTimeout = 5 * time.Minute

// Request identifies the finished timer an alert is for.
type Request struct {
	TimerID   int64
	Label     string
	TotalMs   int64
	ElapsedMs int64
}

// EndReason says why an alert stopped.
type EndReason string

const (
	EndStopped EndReason = "stopped"
	EndTimeout EndReason = "timeout"
	EndClosed  EndReason = "closed"
)

var (
	errStopped = errors.New("alert stopped")
	errClosed  = errors.New("alert service closed")
	errTimeout = errors.New("alert timed out")
)

type active struct {
	req     Request
	cancel  context.CancelCauseFunc
	release context.CancelFunc
	done    chan struct{}
}

// Service owns the active alerts of one process.
type Service struct {
	player   Player
	vibrator Vibrator
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	active map[int64]*active
	onEnd  func(Request, EndReason)
	closed bool
}

// Option configures a Service.
type Option func(*Service)

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService builds a Service. player and vibrator may be nil.
func NewService(player Player, vibrator Vibrator, opts ...Option) *Service {
	s := &Service{
		player:   player,
		vibrator: vibrator,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		active:   make(map[int64]*active),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnEnd sets a hook called when an alert ends by itself (timeout). It runs
// outside the service lock.
func (s *Service) OnEnd(fn func(Request, EndReason)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = fn
}

// Start begins the alert for req.TimerID. It returns false, doing
// nothing, if an alert for that id is already active.
func (s *Service) Start(req Request) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.active[req.TimerID]; ok {
		s.mu.Unlock()
		s.logger.Debug("alert already active", "timer_id", req.TimerID)
		return false
	}
	base, cancel := context.WithCancelCause(context.Background())
	ctx, release := context.WithTimeoutCause(base, s.timeout, errTimeout)
	a := &active{req: req, cancel: cancel, release: release, done: make(chan struct{})}
	s.active[req.TimerID] = a
	s.mu.Unlock()

	go s.run(ctx, a)
	return true
}

func (s *Service) run(ctx context.Context, a *active) {
	id := a.req.TimerID
	var stops []func()

	if s.player != nil {
		if stop, err := s.player.Start(ctx); err != nil {
			s.logger.Warn("alert sound unavailable", "timer_id", id, "error", err)
		} else {
			stops = append(stops, stop)
		}
	}
	if s.vibrator != nil {
		if stop, err := s.vibrator.Start(ctx); err != nil {
			s.logger.Warn("alert vibration unavailable", "timer_id", id, "error", err)
		} else {
			stops = append(stops, stop)
		}
	}
	s.logger.Info("alert started", "timer_id", id, "label", a.req.Label, "modalities", len(stops))

	<-ctx.Done()
	for _, stop := range stops {
		stop()
	}
	a.release()
	a.cancel(nil)

	reason := EndStopped
	switch context.Cause(ctx) {
	case errTimeout:
		reason = EndTimeout
	case errClosed:
		reason = EndClosed
	}

	s.mu.Lock()
	if s.active[id] == a {
		delete(s.active, id)
	}
	hook := s.onEnd
	s.mu.Unlock()
	close(a.done)

	s.logger.Info("alert ended", "timer_id", id, "reason", string(reason))
	if reason == EndTimeout && hook != nil {
		hook(a.req, reason)
	}
}

// Stop ends the alert for id and waits until its sound and vibration are
// released. It reports whether an alert was active.
func (s *Service) Stop(id int64) bool {
	s.mu.Lock()
	a, ok := s.active[id]
	if ok {
		delete(s.active, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	a.cancel(errStopped)
	<-a.done
	return true
}

// Active reports whether an alert for id is playing.
func (s *Service) Active(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}

// ActiveIDs returns the ids with a playing alert, ascending.
func (s *Service) ActiveIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close stops every alert and refuses new ones.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	all := make([]*active, 0, len(s.active))
	for id, a := range s.active {
		all = append(all, a)
		delete(s.active, id)
	}
	s.mu.Unlock()

	for _, a := range all {
		a.cancel(errClosed)
		<-a.done
	}
}
