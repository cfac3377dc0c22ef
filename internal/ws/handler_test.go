package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/domain"
	"duochat/internal/security"
	"duochat/internal/service"
	"duochat/internal/store/sqlite"
)

const testOrigin = "http://localhost:3000"

type sessionStack struct {
	hub     *Hub
	userSvc *service.UserService
	msgSvc  *service.MessageService
	convID  int64
}

func newSessionStack(t *testing.T) *sessionStack {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	userRepo := sqlite.NewUserRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	partRepo := sqlite.NewParticipantRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	encryptor, err := security.NewEncryptor([]byte("session-test-key"), nil)
	require.NoError(t, err)

	convSvc := service.NewConversationService(convRepo, partRepo, msgRepo, userRepo, encryptor)
	msgSvc := service.NewMessageService(convSvc, convRepo, partRepo, msgRepo, userRepo, encryptor)

	alice := &domain.User{Username: "alice", PhoneNumber: "+15550001", HashedPassword: "x", IsActive: true}
	bob := &domain.User{Username: "bob", PhoneNumber: "+15550002", HashedPassword: "x", IsActive: true}
	require.NoError(t, userRepo.Create(ctx, alice))
	require.NoError(t, userRepo.Create(ctx, bob))

	conv, err := convSvc.FindOrCreate(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	return &sessionStack{
		hub:     NewHub(),
		userSvc: service.NewUserService(userRepo),
		msgSvc:  msgSvc,
		convID:  conv.ID,
	}
}

func dialSession(t *testing.T, srv *httptest.Server, conversationID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + strconv.FormatInt(conversationID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {testOrigin}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// The session must stay functional for the connection's whole lifetime,
// even when the surrounding router imposes a per-request deadline.
func TestSessionOutlivesRequestTimeout(t *testing.T) {
	stack := newSessionStack(t)

	r := chi.NewRouter()
	r.Use(middleware.Timeout(100 * time.Millisecond))
	r.Get("/ws/chat/{conversationID}", MakeHandler(stack.hub, stack.userSvc, stack.msgSvc, []string{testOrigin}))

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialSession(t, srv, stack.convID)

	send := func(content string) {
		require.NoError(t, conn.WriteJSON(map[string]any{
			"action_type":     "send",
			"content":         content,
			"sender_username": "alice",
			"message_type":    "text",
		}))
	}

	send("before the deadline")
	ev := readEvent(t, conn)
	assert.Equal(t, "before the deadline", ev["content"])
	assert.NotContains(t, ev, "error")

	// Let the request deadline pass while the connection stays open.
	time.Sleep(300 * time.Millisecond)

	send("after the deadline")
	ev = readEvent(t, conn)
	assert.Equal(t, "after the deadline", ev["content"])
	assert.NotContains(t, ev, "error")
}

func TestSessionRejectsDisallowedOrigin(t *testing.T) {
	stack := newSessionStack(t)

	r := chi.NewRouter()
	r.Get("/ws/chat/{conversationID}", MakeHandler(stack.hub, stack.userSvc, stack.msgSvc, []string{testOrigin}))

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/1"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}
