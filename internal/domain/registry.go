package domain

import "time"

// Registry is the full persisted timer list plus the id counter.
type Registry struct {
	Timers []*Timer
	NextID int64

	// Degraded marks an empty stand-in for a registry that could not be
	// read. It must never be saved over the stored one.
	Degraded bool
}

// NewRegistry returns an empty registry whose first id is 1.
func NewRegistry() *Registry {
	return &Registry{NextID: 1}
}

// Get returns the timer with the given id, or nil.
func (r *Registry) Get(id int64) *Timer {
	for _, t := range r.Timers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Add allocates the next id and appends a new timer.
func (r *Registry) Add(label string, total time.Duration, createdAt time.Time) (*Timer, error) {
	if r.NextID < 1 {
		r.NextID = 1
	}
	t, err := NewTimer(r.NextID, label, total, createdAt)
	if err != nil {
		return nil, err
	}
	r.NextID++
	r.Timers = append(r.Timers, t)
	return t, nil
}

// Remove deletes the timer with the given id. Ids are never reused.
func (r *Registry) Remove(id int64) bool {
	for i, t := range r.Timers {
		if t.ID == id {
			r.Timers = append(r.Timers[:i], r.Timers[i+1:]...)
			return true
		}
	}
	return false
}

// Running returns the timers with an open run segment.
func (r *Registry) Running() []*Timer {
	var out []*Timer
	for _, t := range r.Timers {
		if t.IsRunning {
			out = append(out, t)
		}
	}
	return out
}
