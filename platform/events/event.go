// Package events defines the in-process event bus contract used for
// cross-module notification fan-out. The platform layer carries only the
// plumbing; event payloads live with the modules that publish them.
package events

import (
	"context"
	"time"
)

// Event is implemented by every published event type.
type Event interface {
	// EventName identifies the event type for subscription routing.
	EventName() string
	// OccurredAt reports when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all event payloads.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt reports when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a BaseEvent with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events routed to it by name.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes published events to the handlers subscribed to their name.
type Bus interface {
	// Publish dispatches the event to its subscribers without waiting for
	// them to finish.
	Publish(ctx context.Context, event Event)

	// PublishSync dispatches the event and blocks until every subscriber
	// has returned, collecting their errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name, matched against
	// Event.EventName at publish time.
	Subscribe(eventName string, handler Handler)
}
