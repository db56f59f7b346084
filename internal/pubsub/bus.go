package pubsub

import (
	"sync"
	"time"
)

// Handler receives events delivered synchronously by a Bus.
type Handler[T any] func(Event[T])

type subscription[T any] struct {
	id int
	fn Handler[T]
}

// Bus is a synchronous, ordered publish/subscribe channel. Emit invokes every
// handler, in subscription order, before it returns. Handlers run outside the
// bus lock, so they may subscribe, unsubscribe, or emit reentrantly.
type Bus[T any] struct {
	mu        sync.Mutex
	subs      []subscription[T]
	nextID    int
	destroyed bool
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers a handler and returns a func that removes it.
// The returned func is safe to call more than once.
func (b *Bus[T]) Subscribe(fn Handler[T]) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		panic("pubsub: subscribe on destroyed bus")
	}

	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers an event to all current subscribers in subscription order and
// returns only after every handler has run. Emitting on a destroyed bus is a
// programming error and panics.
func (b *Bus[T]) Emit(eventType EventType, payload T) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		panic("pubsub: emit on destroyed bus")
	}
	// Snapshot so handlers can mutate subscriptions without affecting this
	// delivery round.
	subs := make([]subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	for _, s := range subs {
		s.fn(event)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Destroy removes all subscriptions. Further emits panic.
func (b *Bus[T]) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		panic("pubsub: bus destroyed twice")
	}
	b.destroyed = true
	b.subs = nil
}
