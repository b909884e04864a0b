//go:build darwin

package clock

import "golang.org/x/sys/unix"

// bootMillis reads CLOCK_MONOTONIC, which on darwin counts from boot.
func bootMillis() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return fallbackMillis()
	}
	return ts.Nano() / 1e6
}
