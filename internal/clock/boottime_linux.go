//go:build linux

package clock

import "golang.org/x/sys/unix"

// bootMillis reads CLOCK_BOOTTIME, which keeps counting while suspended.
func bootMillis() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		return fallbackMillis()
	}
	return ts.Nano() / 1e6
}
