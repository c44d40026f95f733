package messaging

import (
	"encoding/json"
	"log"

	"washcore/orchestrator"
	"washcore/store"
)

// TransitionSink records orchestrator transitions: an audit row for
// operators and an outbox row for the Kafka drainer. Failures are logged,
// never bubbled back into the operation that triggered them.
type TransitionSink struct {
	db    *store.DB
	topic string
}

func NewTransitionSink(db *store.DB, topic string) *TransitionSink {
	return &TransitionSink{db: db, topic: topic}
}

func (s *TransitionSink) MachineTransition(ev orchestrator.TransitionEvent) {
	if err := s.db.AppendAudit("machine", ev.MachineID, "transition", string(ev.From), string(ev.To), "orchestrator"); err != nil {
		log.Printf("transitions: audit %s: %v", ev.MachineID, err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("transitions: marshal %s: %v", ev.MachineID, err)
		return
	}
	if err := s.db.EnqueueOutbox(s.topic, payload, "machine_transition", ev.MachineID); err != nil {
		log.Printf("transitions: enqueue %s: %v", ev.MachineID, err)
	}
}
