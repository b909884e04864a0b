//go:build !linux && !darwin

package clock

func bootMillis() int64 {
	return fallbackMillis()
}
