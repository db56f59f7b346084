package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroker_Subscribe(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)

	broker.Publish(ItemUpdated, "hello")

	select {
	case event := <-ch:
		require.Equal(t, "hello", event.Payload)
		require.Equal(t, ItemUpdated, event.Type)
		require.False(t, event.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for event")
	}
}

func TestBroker_MultipleSubscribers(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx := context.Background()

	ch1 := broker.Subscribe(ctx)
	ch2 := broker.Subscribe(ctx)
	ch3 := broker.Subscribe(ctx)

	require.Equal(t, 3, broker.SubscriberCount())

	broker.Publish(ItemAdded, 42)

	// All subscribers should receive the event
	for i, ch := range []<-chan Event[int]{ch1, ch2, ch3} {
		select {
		case event := <-ch:
			require.Equal(t, 42, event.Payload, "subscriber %d", i)
			require.Equal(t, ItemAdded, event.Type, "subscriber %d", i)
		case <-time.After(100 * time.Millisecond):
			require.Fail(t, "timeout waiting for event", "subscriber %d", i)
		}
	}
}

func TestBroker_ContextCancellation(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())

	ch := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()
	time.Sleep(20 * time.Millisecond) // Wait for cleanup goroutine

	require.Equal(t, 0, broker.SubscriberCount())

	// Channel should be closed
	_, ok := <-ch
	require.False(t, ok, "channel should be closed")
}

func TestBroker_NonBlocking(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	ctx := context.Background()
	ch := broker.Subscribe(ctx)

	// Fill the buffer, then overflow it. Publish must not block.
	broker.Publish(ItemAdded, 1)
	broker.Publish(ItemAdded, 2)

	event := <-ch
	require.Equal(t, 1, event.Payload)

	select {
	case ev := <-ch:
		require.Fail(t, "expected second event to be dropped", "got %v", ev.Payload)
	default:
	}
}

func TestBroker_PublishAfterClose(t *testing.T) {
	broker := NewBroker[string]()

	ctx := context.Background()
	ch := broker.Subscribe(ctx)

	broker.Close()

	// Publish after close is a no-op, not a panic.
	broker.Publish(ItemAdded, "late")

	_, ok := <-ch
	require.False(t, ok, "channel should be closed")
}

func TestBroker_SubscribeAfterClose(t *testing.T) {
	broker := NewBroker[string]()
	broker.Close()

	ch := broker.Subscribe(context.Background())
	_, ok := <-ch
	require.False(t, ok, "subscription after close yields a closed channel")
}
