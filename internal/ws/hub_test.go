package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(1)
	b := hub.Subscribe(1)

	hub.Publish(1, "hello")

	assert.Equal(t, "hello", <-a.Events())
	assert.Equal(t, "hello", <-b.Events())
}

func TestHubRoomsAreIsolated(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(1)
	b := hub.Subscribe(2)

	hub.Publish(1, "for room one")

	assert.Equal(t, "for room one", <-a.Events())
	select {
	case ev := <-b.Events():
		t.Fatalf("room 2 received event: %v", ev)
	default:
	}
}

func TestHubPublishOrderPreserved(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(1)

	hub.Publish(1, "first")
	hub.Publish(1, "second")
	hub.Publish(1, "third")

	assert.Equal(t, "first", <-sub.Events())
	assert.Equal(t, "second", <-sub.Events())
	assert.Equal(t, "third", <-sub.Events())
}

func TestHubUnsubscribeClosesStream(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(1)

	hub.Unsubscribe(sub)

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Zero(t, hub.Subscribers(1))

	// Idempotent.
	hub.Unsubscribe(sub)
}

func TestHubPublishAfterUnsubscribe(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(1)
	stay := hub.Subscribe(1)
	hub.Unsubscribe(sub)

	hub.Publish(1, "late")

	assert.Equal(t, "late", <-stay.Events())
}

func TestHubPrunesStalledSubscriber(t *testing.T) {
	hub := NewHub()
	stalled := hub.Subscribe(1)
	healthy := hub.Subscribe(1)

	// Fill the stalled subscriber's queue without draining it.
	for i := 0; i <= defaultBuffer; i++ {
		hub.Publish(1, i)
	}

	// Both undrained queues overflowed on the last publish, so both
	// subscribers were pruned and their streams closed after the buffered
	// events drain.
	assert.Zero(t, hub.Subscribers(1))
	for range stalled.Events() {
	}
	for range healthy.Events() {
	}

	fresh := hub.Subscribe(1)
	hub.Publish(1, "after prune")
	assert.Equal(t, "after prune", <-fresh.Events())
}

func TestHubSendTargetsSingleSubscriber(t *testing.T) {
	hub := NewHub()
	target := hub.Subscribe(1)
	other := hub.Subscribe(1)

	ok := hub.Send(target, ErrorReply{Error: "User not found"})
	assert.True(t, ok)

	ev := <-target.Events()
	reply, isReply := ev.(ErrorReply)
	assert.True(t, isReply)
	assert.Equal(t, "User not found", reply.Error)

	select {
	case ev := <-other.Events():
		t.Fatalf("other subscriber received local reply: %v", ev)
	default:
	}
}

func TestHubSendToRemovedSubscriber(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(1)
	hub.Unsubscribe(sub)

	assert.False(t, hub.Send(sub, ErrorReply{Error: "gone"}))
}
