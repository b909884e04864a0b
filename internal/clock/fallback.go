package clock

import "time"

// fallbackMillis mirrors the wall clock when no boot clock is available.
// The min() in segment arithmetic then degrades to wall-clock only.
func fallbackMillis() int64 {
	return time.Now().UnixMilli()
}
