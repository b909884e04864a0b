package domain

import "time"

// Instant is a paired reading of the wall clock and the boot-relative
// monotonic clock, both in milliseconds. Timer arithmetic always takes
// both so that either can be distrusted after a clock change or reboot.
type Instant struct {
	WallMs     int64
	RealtimeMs int64
}

// Time returns the wall-clock component as a time.Time.
func (i Instant) Time() time.Time {
	return time.UnixMilli(i.WallMs)
}

// Add returns the instant advanced by d on both clocks.
func (i Instant) Add(d time.Duration) Instant {
	ms := d.Milliseconds()
	return Instant{WallMs: i.WallMs + ms, RealtimeMs: i.RealtimeMs + ms}
}
