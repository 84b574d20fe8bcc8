package events

import (
	"context"
	"time"
)

// Event defines the contract for all session events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_STATE_CHANGED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type codes emitted by a session.
const (
	TypeStateChanged         = "SESSION_STATE_CHANGED"
	TypeReferenceEstablished = "REFERENCE_ESTABLISHED"
	TypeOffsetUpdated        = "ANCHOR_OFFSET_UPDATED"
	TypeCapabilityRequested  = "CAPABILITY_REQUESTED"
	TypeCapabilityDenied     = "CAPABILITY_DENIED"
	TypeStaleCallback        = "STALE_CALLBACK"
	TypeJobsFlushed          = "JOBS_FLUSHED"
)

// BaseEvent is the only Event implementation the session needs.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
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

// SessionID extracts the "session_id" payload field, empty if absent.
func SessionID(e Event) string {
	id, _ := e.Payload()["session_id"].(string)
	return id
}

// Publisher abstracts event publishing.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}
