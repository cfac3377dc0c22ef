package service

import (
	"context"
	"fmt"
	"time"

	"duochat/internal/domain"
	"duochat/internal/security"
)

// ConversationService owns conversation lifecycle: pair lookup and creation,
// participant-guarded access, hidden-filtered listing, and the per-user
// soft-delete / auto-restore state machine.
type ConversationService struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	users         domain.UserRepository
	encryptor     *security.Encryptor
}

func NewConversationService(
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
	encryptor *security.Encryptor,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		users:         users,
		encryptor:     encryptor,
	}
}

// FindOrCreate returns the conversation containing exactly the given pair,
// creating it if absent. Symmetric in its arguments: FindOrCreate(a, b) and
// FindOrCreate(b, a) yield the same conversation.
func (s *ConversationService) FindOrCreate(ctx context.Context, userAID, userBID int64) (*domain.Conversation, error) {
	if userAID == userBID {
		return nil, fmt.Errorf("%w: cannot start a conversation with yourself", domain.ErrInvalidMessage)
	}

	conv, err := s.conversations.FindDirect(ctx, userAID, userBID)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	conv = &domain.Conversation{}
	if err := s.conversations.Create(ctx, conv, []int64{userAID, userBID}); err != nil {
		// A concurrent call for the same pair may have won the race.
		if existing, ferr := s.conversations.FindDirect(ctx, userAID, userBID); ferr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Get returns the conversation if it exists and the user is a participant;
// otherwise ErrNotFound. Absence and lack of membership are deliberately
// indistinguishable to the caller.
func (s *ConversationService) Get(ctx context.Context, conversationID, userID int64) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}
	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !isParticipant {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

// OtherParticipant returns the sole participant besides the given user.
func (s *ConversationService) OtherParticipant(ctx context.Context, conversationID, userID int64) (*domain.User, error) {
	participants, err := s.participants.ListParticipants(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	for _, p := range participants {
		if p.ID != userID {
			return p, nil
		}
	}
	return nil, domain.ErrNoRecipient
}

// SoftDelete hides the conversation for the user and stamps the deletion
// watermark. Idempotent; repeating only advances the watermark.
func (s *ConversationService) SoftDelete(ctx context.Context, conversationID, userID int64) error {
	if _, err := s.Get(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.participants.Hide(ctx, conversationID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}
	return nil
}

// AutoRestore clears the hidden flag for every participant currently hiding
// the conversation. Watermarks stay untouched, so restored participants only
// ever see messages newer than their last soft-delete.
func (s *ConversationService) AutoRestore(ctx context.Context, conversationID int64) error {
	hidden, err := s.participants.HiddenUserIDs(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("hidden participants: %w", err)
	}
	for _, uid := range hidden {
		if err := s.participants.Restore(ctx, conversationID, uid); err != nil {
			return fmt.Errorf("restore for user %d: %w", uid, err)
		}
	}
	return nil
}

// ConversationResponse is the listing projection for one conversation.
type ConversationResponse struct {
	ID               int64     `json:"id"`
	OtherParticipant *UserRef  `json:"other_participant,omitempty"`
	LastMessage      string    `json:"last_message,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserRef is the minimal identity projection embedded in responses.
type UserRef struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
}

// List returns the user's conversations, most recently active first,
// excluding those the user has currently hidden.
func (s *ConversationService) List(ctx context.Context, userID int64) ([]*ConversationResponse, error) {
	convs, err := s.conversations.ListVisibleForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	res := make([]*ConversationResponse, 0, len(convs))
	for _, c := range convs {
		resp := &ConversationResponse{
			ID:        c.ID,
			UpdatedAt: c.UpdatedAt,
			CreatedAt: c.CreatedAt,
		}
		if other, err := s.OtherParticipant(ctx, c.ID, userID); err == nil {
			resp.OtherParticipant = &UserRef{
				ID:          other.ID,
				Username:    other.Username,
				PhoneNumber: other.PhoneNumber,
			}
		}
		resp.LastMessage = s.lastMessagePreview(ctx, c.ID)
		res = append(res, resp)
	}
	return res, nil
}

func (s *ConversationService) lastMessagePreview(ctx context.Context, conversationID int64) string {
	last, err := s.messages.LastMessage(ctx, conversationID)
	if err != nil || last == nil {
		return ""
	}
	if last.MessageType == domain.MessageTypeAudio {
		return "Voice message"
	}
	if plain, err := s.encryptor.Decrypt(last.Content); err == nil {
		return plain
	}
	// Decryption failure degrades to the stored form rather than hiding
	// the conversation preview entirely.
	return last.Content
}

// ToResponse builds the single-conversation projection for the given viewer.
func (s *ConversationService) ToResponse(ctx context.Context, c *domain.Conversation, viewerID int64) *ConversationResponse {
	resp := &ConversationResponse{
		ID:        c.ID,
		UpdatedAt: c.UpdatedAt,
		CreatedAt: c.CreatedAt,
	}
	if other, err := s.OtherParticipant(ctx, c.ID, viewerID); err == nil {
		resp.OtherParticipant = &UserRef{
			ID:          other.ID,
			Username:    other.Username,
			PhoneNumber: other.PhoneNumber,
		}
	}
	resp.LastMessage = s.lastMessagePreview(ctx, c.ID)
	return resp
}
