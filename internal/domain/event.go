package domain

import "time"

// TimerEvent is one entry of the append-only timer history.
type TimerEvent struct {
	ID          string
	TimerID     int64
	Kind        EventKind
	Source      Source
	WallClockMs int64
	ElapsedMs   int64
	CreatedAt   time.Time
}

// WakeAlarm is a pending one-shot wake callback for a timer.
type WakeAlarm struct {
	TimerID   int64
	FireAt    time.Time
	Payload   WakePayload
	CreatedAt time.Time
}

// WakePayload travels with a wake alarm and is handed back on delivery.
type WakePayload struct {
	TimerID   int64  `cbor:"1,keyasint"`
	Label     string `cbor:"2,keyasint"`
	TotalMs   int64  `cbor:"3,keyasint"`
	ElapsedMs int64  `cbor:"4,keyasint"`
}
