package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListActive(ctx context.Context, offset, limit int) ([]*User, error)
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation, participantIDs []int64) error
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	// FindDirect returns the conversation containing exactly the given user
	// pair, in either order, or nil if none exists.
	FindDirect(ctx context.Context, userAID, userBID int64) (*Conversation, error)
	// ListVisibleForUser returns conversations the user participates in and
	// has not currently hidden, most recently updated first.
	ListVisibleForUser(ctx context.Context, userID int64) ([]*Conversation, error)
	// Touch bumps the conversation's updated_at to now.
	Touch(ctx context.Context, id int64) error
}

// ParticipantRepository defines operations on conversation membership,
// including the per-participant soft-delete state.
type ParticipantRepository interface {
	ListParticipants(ctx context.Context, conversationID int64) ([]*User, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	// Hide marks the conversation hidden for the user and stamps the
	// deletion watermark. Idempotent; calling again refreshes the watermark.
	Hide(ctx context.Context, conversationID, userID int64, at time.Time) error
	// Restore clears the hidden flag only. The deletion watermark is
	// deliberately left untouched.
	Restore(ctx context.Context, conversationID, userID int64) error
	// HiddenUserIDs returns the users currently hiding the conversation.
	HiddenUserIDs(ctx context.Context, conversationID int64) ([]int64, error)
	// Watermark returns the user's deletion watermark for the conversation,
	// or nil if the user never soft-deleted it.
	Watermark(ctx context.Context, conversationID, userID int64) (*time.Time, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	// ListForConversation returns the full history in creation order.
	ListForConversation(ctx context.Context, conversationID int64) ([]*Message, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, id int64) error
	// MarkReadForRecipient flips is_read on every unread message addressed
	// to the recipient in the conversation. Idempotent bulk update.
	MarkReadForRecipient(ctx context.Context, conversationID, recipientID int64) error
	// LastMessage returns the newest message of the conversation, or nil.
	LastMessage(ctx context.Context, conversationID int64) (*Message, error)
}
