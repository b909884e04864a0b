package domain

type TimerStatus string

const (
	TimerIdle     TimerStatus = "idle"
	TimerRunning  TimerStatus = "running"
	TimerPaused   TimerStatus = "paused"
	TimerFinished TimerStatus = "finished"
)

// Action is a signal routed to a timer from any surface.
type Action string

const (
	ActionPause   Action = "pause"
	ActionReset   Action = "reset"
	ActionSilence Action = "silence"
)

// ParseAction maps a user or notification token to an Action.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionPause, ActionReset, ActionSilence:
		return Action(s), true
	}
	return "", false
}

// Source identifies where a state change originated.
type Source string

const (
	SourceApp          Source = "app"
	SourceNotification Source = "notification"
	SourceWake         Source = "wake"
	SourceLoop         Source = "loop"
	SourceBoot         Source = "boot"
)

type EventKind string

const (
	EventCreated         EventKind = "created"
	EventStarted         EventKind = "started"
	EventPaused          EventKind = "paused"
	EventReset           EventKind = "reset"
	EventEdited          EventKind = "edited"
	EventDeleted         EventKind = "deleted"
	EventFinished        EventKind = "finished"
	EventAlertDispatched EventKind = "alert_dispatched"
	EventSilenced        EventKind = "silenced"
	EventAlertExpired    EventKind = "alert_expired"
)
