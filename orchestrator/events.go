package orchestrator

import (
	"time"

	"washcore/store"
)

// TransitionEvent describes one recorded status change.
type TransitionEvent struct {
	EventID   string       `json:"event_id"`
	MachineID string       `json:"machine_id"`
	Location  string       `json:"location_id"`
	From      store.Status `json:"from"`
	To        store.Status `json:"to"`
	JobID     string       `json:"job_id,omitempty"`
	At        time.Time    `json:"at"`
}

// EventSink receives transition events after the store and cache have been
// updated. Sinks must not fail the operation; delivery is best-effort from
// the orchestrator's point of view.
type EventSink interface {
	MachineTransition(ev TransitionEvent)
}

type noopSink struct{}

func (noopSink) MachineTransition(TransitionEvent) {}
