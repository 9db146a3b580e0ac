package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventVersion is the envelope schema version stamped on new events.
const EventVersion = 1

// ErrMissingUserID is returned when an event is built without the user it
// concerns. Every event here is keyed by user so it can be partitioned.
var ErrMissingUserID = errors.New("kafka: event user id is required")

// Event is the envelope for user account and session events.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	UserID        string          `json:"userId"`
	Version       int             `json:"version"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event about userID. A nil data leaves the payload empty.
func NewEvent(eventType, userID, source string, data any) (*Event, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	ev := &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Version:    EventVersion,
		OccurredAt: time.Now().UTC(),
		Source:     source,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		ev.Data = raw
	}
	return ev, nil
}

// WithCorrelationID ties the event to the request that caused it.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Key is the partition key. Events for one user stay ordered.
func (e *Event) Key() []byte {
	return []byte(e.UserID)
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent decodes an envelope and rejects one with no user id.
func UnmarshalEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.UserID == "" {
		return nil, ErrMissingUserID
	}
	return &ev, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no payload", e.ID)
	}
	return json.Unmarshal(e.Data, target)
}
