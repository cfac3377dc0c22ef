package domain

import (
	"fmt"
	"time"
)

// MessageType discriminates text messages from voice notes.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeAudio MessageType = "audio"
)

// User represents an application user. Identity is resolved externally
// (phone number or username); this core only consumes it.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PhoneNumber    string    `db:"phone_number" json:"phone_number"`
	Email          *string   `db:"email" json:"email,omitempty"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Conversation represents a durable chat thread between exactly two users.
type Conversation struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PairKey returns the canonical key for an unordered user pair. The stores
// keep it unique per conversation, so a duplicate pair insert fails no
// matter which order the two ids arrive in.
func PairKey(userAID, userBID int64) string {
	if userAID > userBID {
		userAID, userBID = userBID, userAID
	}
	return fmt.Sprintf("%d:%d", userAID, userBID)
}

// ConversationParticipant records a user's membership in a conversation,
// including the soft-delete state. Hidden is the transient "currently
// hidden" flag; DeletedAt is the permanent visibility watermark and is
// never cleared once set, only refreshed by a later soft-delete.
type ConversationParticipant struct {
	UserID         int64      `db:"user_id"`
	ConversationID int64      `db:"conversation_id"`
	Hidden         bool       `db:"hidden"`
	DeletedAt      *time.Time `db:"deleted_at"`
	JoinedAt       time.Time  `db:"joined_at"`
}

// Message represents a single chat message. Text content is encrypted at
// rest; audio payloads are stored as raw bytes.
type Message struct {
	ID             int64       `db:"id"`
	ConversationID int64       `db:"conversation_id"`
	SenderID       int64       `db:"sender_id"`
	RecipientID    int64       `db:"recipient_id"`
	Content        string      `db:"content"`
	MessageType    MessageType `db:"message_type"`
	AudioData      []byte      `db:"audio_data"`
	CreatedAt      time.Time   `db:"created_at"`
	IsDelivered    bool        `db:"is_delivered"`
	IsRead         bool        `db:"is_read"`
}

// OwnedBy reports whether the given user may mutate (edit or delete)
// this message. Only the original sender ever may.
func (m *Message) OwnedBy(userID int64) bool {
	return m.SenderID == userID
}
