package ws

import "sync"

// defaultBuffer is the per-subscriber event queue depth. A subscriber whose
// queue is full at publish time is considered stalled and gets pruned rather
// than blocking delivery to the rest of the conversation.
const defaultBuffer = 64

// Subscriber is one live connection's handle on a conversation's event
// stream. Events are consumed from Events(); the channel is closed when the
// subscriber is removed from the hub.
type Subscriber struct {
	conversationID int64
	events         chan any
	closed         bool // guarded by the hub mutex
}

// Events returns the subscriber's event stream.
func (s *Subscriber) Events() <-chan any {
	return s.events
}

// Hub maintains one volatile distribution group per conversation and fans
// message-lifecycle events out to every subscribed connection. It persists
// nothing; durable state lives in the stores.
type Hub struct {
	mu    sync.Mutex
	rooms map[int64]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[int64]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber for the conversation and returns its
// handle.
func (h *Hub) Subscribe(conversationID int64) *Subscriber {
	sub := &Subscriber{
		conversationID: conversationID,
		events:         make(chan any, defaultBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[*Subscriber]struct{})
		h.rooms[conversationID] = room
	}
	room[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its event stream.
// Idempotent: a subscriber already pruned by Publish is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// Publish delivers the event to every current subscriber of the
// conversation, in the order Publish was called. Delivery is best-effort:
// subscribers that cannot accept the event are pruned, never treated as a
// publish failure.
func (h *Hub) Publish(conversationID int64, event any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.rooms[conversationID] {
		select {
		case sub.events <- event:
		default:
			h.removeLocked(sub)
		}
	}
}

// Send delivers an event to a single subscriber, used for local error
// replies. Reports whether the subscriber was still registered.
func (h *Hub) Send(sub *Subscriber, event any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.closed {
		return false
	}
	select {
	case sub.events <- event:
		return true
	default:
		h.removeLocked(sub)
		return false
	}
}

func (h *Hub) removeLocked(sub *Subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.events)

	if room, ok := h.rooms[sub.conversationID]; ok {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, sub.conversationID)
		}
	}
}

// Subscribers reports the current subscriber count for a conversation.
func (h *Hub) Subscribers(conversationID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[conversationID])
}
