// Package pubsub provides the event channels used for entity lifecycle
// notifications: a synchronous ordered Bus for in-process subscribers and a
// buffered Broker for asynchronous consumers such as the UI.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the kind of event being published.
type EventType string

const (
	ItemAdded      EventType = "itemAdded"
	ItemWillUpdate EventType = "itemWillUpdate"
	ItemUpdated    EventType = "itemUpdated"
	ItemRemoved    EventType = "itemRemoved"
)

// Source tags the origin of a mutation. It is an open enumeration owned by
// the caller; the two values below are the conventional ones.
type Source string

const (
	SourceUser Source = "user"
	SourceSync Source = "sync"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
