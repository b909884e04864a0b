package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration accepts "HH:MM:SS", "MM:SS", "SS" or a Go duration string
// such as "25m" or "1h30m". With a higher unit present, minutes and
// seconds must be 0-59.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if !strings.Contains(s, ":") {
		if n, err := strconv.Atoi(s); err == nil {
			return checkPositive(time.Duration(n) * time.Second)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: try 00:05:00, 5:00 or 5m", s)
		}
		return checkPositive(d)
	}

	var parts []int
	for _, p := range strings.Split(s, ":") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q: try 00:05:00 or 5:00", s)
		}
		parts = append(parts, n)
	}

	var h, m, sec int
	switch len(parts) {
	case 1:
		sec = parts[0]
	case 2:
		m, sec = parts[0], parts[1]
		if sec > 59 {
			return 0, fmt.Errorf("invalid duration %q: seconds must be 0-59", s)
		}
	case 3:
		h, m, sec = parts[0], parts[1], parts[2]
		if m > 59 || sec > 59 {
			return 0, fmt.Errorf("invalid duration %q: minutes and seconds must be 0-59", s)
		}
	default:
		return 0, fmt.Errorf("invalid duration %q: try 00:05:00 or 5:00", s)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
	return checkPositive(d)
}

func checkPositive(d time.Duration) (time.Duration, error) {
	if d <= 0 {
		return 0, ErrInvalidDuration
	}
	return d, nil
}

// FormatHMS renders milliseconds as "H:MM:SS", or "M:SS" under an hour.
func FormatHMS(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
