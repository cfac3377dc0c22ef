package ws

import "time"

// Event payloads fanned out to a conversation's subscribers. A freshly
// created message is broadcast as its full projection; clients treat an
// untagged event as a create. Edits and deletes carry an action_type
// discriminator. All three name the acting user so clients can reconcile
// optimistic local state.

// EditEvent announces a content change to an existing message.
type EditEvent struct {
	ActionType     string    `json:"action_type"`
	ID             int64     `json:"id"`
	Content        string    `json:"content"`
	SenderUsername string    `json:"sender_username"`
	Timestamp      time.Time `json:"timestamp"`
	MessageType    string    `json:"message_type"`
}

// DeleteEvent announces the removal of a message.
type DeleteEvent struct {
	ActionType     string `json:"action_type"`
	ID             int64  `json:"id"`
	SenderUsername string `json:"sender_username"`
}

// ErrorReply is sent to the originating connection only; failures are never
// broadcast to the rest of the conversation.
type ErrorReply struct {
	Error string `json:"error"`
}
