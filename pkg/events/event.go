package events

import "time"

// Event defines the contract for audit events emitted by the chat backend.
type Event interface {
	// EventType returns the unique code for this event (e.g., "THREAD_MIGRATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeThreadCreated       = "THREAD_CREATED"
	TypeConversationCreated = "CONVERSATION_CREATED"
	TypeThreadMigrated      = "THREAD_MIGRATED"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func NewBaseEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
