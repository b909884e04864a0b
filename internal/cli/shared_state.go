package cli

import (
	"time"

	"github.com/alexanderramin/multitimer/internal/domain"
)

// SharedState holds context shared across all views via pointer.
type SharedState struct {
	App *App

	// Timers is the last loaded snapshot, in id order.
	Timers  []*domain.Timer
	LoadErr error

	// Terminal dimensions
	Width  int
	Height int
}

// Now is the instant views render against.
func (s *SharedState) Now() domain.Instant {
	return s.App.Clock.Now()
}

// Timer returns the snapshot of one timer, or nil.
func (s *SharedState) Timer(id int64) *domain.Timer {
	for _, t := range s.Timers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Alerting returns the timers with an unsilenced alert.
func (s *SharedState) Alerting() []*domain.Timer {
	var out []*domain.Timer
	for _, t := range s.Timers {
		if t.Alerted && !t.Silenced {
			out = append(out, t)
		}
	}
	return out
}

// TickInterval is how often the UI reconciles and redraws.
func (s *SharedState) TickInterval() time.Duration {
	if d := s.App.Config.TickInterval; d > 0 {
		return d
	}
	return 200 * time.Millisecond
}
