package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names the change a TransactionEvent reports.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// TransactionEvent is a lightweight change notification. It carries only the
// transaction ID; consumers re-read the file for current state.
type TransactionEvent struct {
	EventID       string    `json:"event_id"`
	Kind          EventKind `json:"kind"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event with a fresh ID.
func NewTransactionEvent(kind EventKind, id int64) *TransactionEvent {
	return &TransactionEvent{
		EventID:       uuid.NewString(),
		Kind:          kind,
		TransactionID: id,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var evt TransactionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	switch evt.Kind {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", evt.Kind)
	}
	if evt.TransactionID <= 0 {
		return nil, fmt.Errorf("invalid transaction id %d", evt.TransactionID)
	}
	return &evt, nil
}
