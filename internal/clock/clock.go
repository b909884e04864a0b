// Package clock supplies the paired wall/monotonic readings that timer
// arithmetic runs on.
//
// The monotonic leg must stay meaningful across process restarts, so it
// is read from the boot clock (time since boot, including suspend) rather
// than from Go's per-process monotonic reading. After a reboot the boot
// clock restarts near zero; the timer code detects this as a negative
// delta and falls back to the wall clock.
package clock

import (
	"sync"
	"time"

	"github.com/alexanderramin/multitimer/internal/domain"
)

// Clock produces paired readings.
type Clock interface {
	Now() domain.Instant
}

// System reads the real clocks.
type System struct{}

func (System) Now() domain.Instant {
	return domain.Instant{
		WallMs:     time.Now().UnixMilli(),
		RealtimeMs: bootMillis(),
	}
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu  sync.Mutex
	now domain.Instant
}

// NewFake returns a Fake positioned at start with the given boot reading.
func NewFake(start time.Time, realtimeMs int64) *Fake {
	return &Fake{now: domain.Instant{WallMs: start.UnixMilli(), RealtimeMs: realtimeMs}}
}

func (f *Fake) Now() domain.Instant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves both clocks forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set replaces the reading, e.g. to simulate a reboot or a clock change.
func (f *Fake) Set(now domain.Instant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}
