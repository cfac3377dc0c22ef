package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"duochat/internal/domain"
	"duochat/internal/security"
)

const maxContentRunes = 5000

// MessageService owns the message lifecycle: append with recipient
// resolution and validation, ownership-guarded edit/delete, and
// watermark-filtered history with read marking.
type MessageService struct {
	conversations *ConversationService
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	users         domain.UserRepository
	encryptor     *security.Encryptor
	convRepo      domain.ConversationRepository
}

func NewMessageService(
	conversations *ConversationService,
	convRepo domain.ConversationRepository,
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
	encryptor *security.Encryptor,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		convRepo:      convRepo,
		participants:  participants,
		messages:      messages,
		users:         users,
		encryptor:     encryptor,
	}
}

// SendInput carries one inbound message. AudioBase64 is the wire encoding of
// the voice-note payload; it is decoded before storage.
type SendInput struct {
	Content     string
	MessageType domain.MessageType
	AudioBase64 string
}

// Send appends a message to the conversation on behalf of senderID. It
// resolves the recipient as the sole other participant, validates the
// content/type/payload combination, bumps the conversation's activity
// timestamp, and auto-restores the thread for any participant currently
// hiding it (their watermark stays put, so only this and later messages
// become visible to them).
func (s *MessageService) Send(ctx context.Context, conversationID, senderID int64, in SendInput) (*domain.Message, error) {
	if in.MessageType == "" {
		in.MessageType = domain.MessageTypeText
	}

	conv, err := s.conversations.Get(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	recipient, err := s.conversations.OtherParticipant(ctx, conv.ID, senderID)
	if err != nil {
		return nil, err
	}

	msg, err := s.buildMessage(conv.ID, senderID, recipient.ID, in)
	if err != nil {
		return nil, err
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.convRepo.Touch(ctx, conv.ID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if err := s.conversations.AutoRestore(ctx, conv.ID); err != nil {
		return nil, err
	}
	return msg, nil
}

// SendDirect resolves the recipient by identifier, finds or creates the pair
// conversation, and appends a text message to it.
func (s *MessageService) SendDirect(ctx context.Context, senderID int64, recipientIdentifier, content string) (*domain.Message, error) {
	recipient, err := s.resolveRecipient(ctx, recipientIdentifier)
	if err != nil {
		return nil, err
	}
	conv, err := s.conversations.FindOrCreate(ctx, senderID, recipient.ID)
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, conv.ID, senderID, SendInput{Content: content, MessageType: domain.MessageTypeText})
}

func (s *MessageService) resolveRecipient(ctx context.Context, identifier string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: recipient identifier is required", domain.ErrInvalidMessage)
	}
	if u, err := s.users.GetByPhone(ctx, identifier); err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	} else if u != nil {
		return u, nil
	}
	if u, err := s.users.GetByUsername(ctx, identifier); err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	} else if u != nil {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *MessageService) buildMessage(conversationID, senderID, recipientID int64, in SendInput) (*domain.Message, error) {
	if len([]rune(in.Content)) > maxContentRunes {
		return nil, fmt.Errorf("%w: content exceeds %d characters", domain.ErrInvalidMessage, maxContentRunes)
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		MessageType:    in.MessageType,
		CreatedAt:      time.Now().UTC(),
		IsDelivered:    true,
	}

	switch in.MessageType {
	case domain.MessageTypeText:
		if strings.TrimSpace(in.Content) == "" {
			return nil, fmt.Errorf("%w: content is required for text messages", domain.ErrInvalidMessage)
		}
		encrypted, err := s.encryptor.Encrypt(in.Content)
		if err != nil {
			return nil, fmt.Errorf("encrypt content: %w", err)
		}
		msg.Content = encrypted
	case domain.MessageTypeAudio:
		if in.AudioBase64 == "" {
			return nil, fmt.Errorf("%w: audio data is required for audio messages", domain.ErrInvalidMessage)
		}
		audio, err := base64.StdEncoding.DecodeString(in.AudioBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid audio data: %v", domain.ErrInvalidMessage, err)
		}
		if len(audio) == 0 {
			return nil, fmt.Errorf("%w: audio data is required for audio messages", domain.ErrInvalidMessage)
		}
		msg.AudioData = audio
		if in.Content != "" {
			encrypted, err := s.encryptor.Encrypt(in.Content)
			if err != nil {
				return nil, fmt.Errorf("encrypt content: %w", err)
			}
			msg.Content = encrypted
		}
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", domain.ErrInvalidMessage, in.MessageType)
	}

	return msg, nil
}

// Edit replaces the content of a text message owned by the caller. Audio
// messages are never editable, and the new content must be non-empty after
// trimming.
func (s *MessageService) Edit(ctx context.Context, callerID, messageID int64, newContent string) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, domain.ErrNotFound
	}
	if !msg.OwnedBy(callerID) {
		return nil, domain.ErrForbidden
	}
	if msg.MessageType != domain.MessageTypeText {
		return nil, fmt.Errorf("%w: only text messages can be edited", domain.ErrInvalidMessage)
	}

	trimmed := strings.TrimSpace(newContent)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidMessage)
	}
	if len([]rune(trimmed)) > maxContentRunes {
		return nil, fmt.Errorf("%w: content exceeds %d characters", domain.ErrInvalidMessage, maxContentRunes)
	}

	encrypted, err := s.encryptor.Encrypt(trimmed)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}
	if err := s.messages.UpdateContent(ctx, messageID, encrypted); err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	msg.Content = encrypted
	return msg, nil
}

// Delete removes a message owned by the caller permanently. The deleted
// message is returned so the caller can publish its delete event.
func (s *MessageService) Delete(ctx context.Context, callerID, messageID int64) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, domain.ErrNotFound
	}
	if !msg.OwnedBy(callerID) {
		return nil, domain.ErrForbidden
	}
	if err := s.messages.Delete(ctx, messageID); err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}
	return msg, nil
}

// ListVisible returns the viewer's visible slice of the conversation
// history: everything newer than the viewer's deletion watermark, in
// creation order. As a side effect every message addressed to the viewer is
// marked read (idempotent), mirroring a history fetch by the recipient.
func (s *MessageService) ListVisible(ctx context.Context, conversationID, viewerID int64) ([]*domain.Message, error) {
	if _, err := s.conversations.Get(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}

	if err := s.messages.MarkReadForRecipient(ctx, conversationID, viewerID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	msgs, err := s.messages.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	watermark, err := s.participants.Watermark(ctx, conversationID, viewerID)
	if err != nil {
		return nil, err
	}
	return domain.VisibleAfter(msgs, watermark), nil
}

// MessageResponse is the message projection shared by the HTTP and ws
// surfaces. Audio payloads travel as base64 text.
type MessageResponse struct {
	ID              int64     `json:"id"`
	ConversationID  int64     `json:"conversation_id"`
	SenderID        int64     `json:"sender_id"`
	SenderUsername  string    `json:"sender_username"`
	Content         string    `json:"content"`
	MessageType     string    `json:"message_type"`
	AudioDataBase64 string    `json:"audio_data_base64,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	IsDelivered     bool      `json:"is_delivered"`
	IsRead          bool      `json:"is_read"`
}

// ToResponse converts a stored message into its decrypted projection.
func (s *MessageService) ToResponse(ctx context.Context, m *domain.Message) (*MessageResponse, error) {
	content := m.Content
	if content != "" {
		if plain, err := s.encryptor.Decrypt(m.Content); err == nil {
			content = plain
		}
		// On decrypt failure fall back to the stored form.
	}

	var username string
	if u, err := s.users.GetByID(ctx, m.SenderID); err == nil && u != nil {
		username = u.Username
	}

	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderUsername: username,
		Content:        content,
		MessageType:    string(m.MessageType),
		Timestamp:      m.CreatedAt,
		IsDelivered:    m.IsDelivered,
		IsRead:         m.IsRead,
	}
	if m.MessageType == domain.MessageTypeAudio && len(m.AudioData) > 0 {
		resp.AudioDataBase64 = base64.StdEncoding.EncodeToString(m.AudioData)
	}
	return resp, nil
}

// ToResponses converts a slice of stored messages into projections.
func (s *MessageService) ToResponses(ctx context.Context, msgs []*domain.Message) ([]*MessageResponse, error) {
	res := make([]*MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		dto, err := s.ToResponse(ctx, m)
		if err != nil {
			return nil, err
		}
		res = append(res, dto)
	}
	return res, nil
}
