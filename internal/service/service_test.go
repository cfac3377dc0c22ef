package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"duochat/internal/domain"
	"duochat/internal/security"
	"duochat/internal/service"
	"duochat/internal/store/sqlite"
)

// testEnv wires the full service stack against an in-memory SQLite store.
type testEnv struct {
	users domain.UserRepository
	parts domain.ParticipantRepository
	msgs  domain.MessageRepository

	userSvc *service.UserService
	convSvc *service.ConversationService
	msgSvc  *service.MessageService

	alice *domain.User
	bob   *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	// A shared in-memory database needs a single connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	userRepo := sqlite.NewUserRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	partRepo := sqlite.NewParticipantRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	encryptor, err := security.NewEncryptor([]byte("test-encryption-key"), nil)
	require.NoError(t, err)

	convSvc := service.NewConversationService(convRepo, partRepo, msgRepo, userRepo, encryptor)
	msgSvc := service.NewMessageService(convSvc, convRepo, partRepo, msgRepo, userRepo, encryptor)

	env := &testEnv{
		users:   userRepo,
		parts:   partRepo,
		msgs:    msgRepo,
		userSvc: service.NewUserService(userRepo),
		convSvc: convSvc,
		msgSvc:  msgSvc,
	}
	env.alice = env.createUser(t, "alice", "+15550001")
	env.bob = env.createUser(t, "bob", "+15550002")
	return env
}

func (e *testEnv) createUser(t *testing.T, username, phone string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:       username,
		PhoneNumber:    phone,
		HashedPassword: "x",
		IsActive:       true,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) sendText(t *testing.T, conversationID, senderID int64, content string) *domain.Message {
	t.Helper()
	msg, err := e.msgSvc.Send(context.Background(), conversationID, senderID, service.SendInput{
		Content:     content,
		MessageType: domain.MessageTypeText,
	})
	require.NoError(t, err)
	return msg
}
