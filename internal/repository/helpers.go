package repository

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row or record.
var ErrNotFound = errors.New("not found")

// ErrRegistryUnavailable is returned when saving a registry that stands in
// for one that could not be read.
var ErrRegistryUnavailable = errors.New("timer registry unavailable")

// nowUTC returns the current UTC time formatted as RFC3339.
func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTime parses an RFC3339 column value, returning the zero time on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
