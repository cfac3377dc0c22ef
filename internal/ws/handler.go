package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"duochat/internal/domain"
	"duochat/internal/service"
)

// inboundAction is the wire shape of every client action. action_type
// defaults to send; edit and delete reference an existing message.
type inboundAction struct {
	ActionType      string `json:"action_type"`
	Content         string `json:"content"`
	SenderUsername  string `json:"sender_username"`
	MessageType     string `json:"message_type"`
	AudioDataBase64 string `json:"audio_data_base64"`
	MessageID       int64  `json:"message_id"`
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// MakeHandler returns the HTTP handler for /ws/chat/{conversationID}.
// Each accepted connection becomes a conversation session: it subscribes to
// the hub for its conversation, decodes inbound actions (send by default,
// edit, delete), drives the services, and publishes the resulting events.
// Failures are reported back to the originating connection only.
func MakeHandler(
	hub *Hub,
	users *service.UserService,
	msgSvc *service.MessageService,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid conversation id", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := &session{
			hub:            hub,
			users:          users,
			messages:       msgSvc,
			conversationID: conversationID,
		}
		// The session outlives the HTTP request: any deadline on the
		// request context would start failing store calls mid-session.
		sess.run(context.WithoutCancel(r.Context()), conn)
	}
}

// session binds one live connection to a conversation's broadcast group.
type session struct {
	hub            *Hub
	users          *service.UserService
	messages       *service.MessageService
	conversationID int64
	sub            *Subscriber
}

func (s *session) run(ctx context.Context, conn *websocket.Conn) {
	s.sub = s.hub.Subscribe(s.conversationID)

	// Writer drains the subscription so a slow store call in the read loop
	// never blocks delivery from other sessions.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range s.sub.Events() {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}()

	for {
		var action inboundAction
		if err := conn.ReadJSON(&action); err != nil {
			break
		}

		switch action.ActionType {
		case "edit":
			s.handleEdit(ctx, action)
		case "delete":
			s.handleDelete(ctx, action)
		default:
			s.handleSend(ctx, action)
		}
	}

	s.hub.Unsubscribe(s.sub)
	<-done
}

// reply sends a local error to this connection only.
func (s *session) reply(msg string) {
	s.hub.Send(s.sub, ErrorReply{Error: msg})
}

func (s *session) handleSend(ctx context.Context, action inboundAction) {
	sender, err := s.users.ResolveByUsername(ctx, action.SenderUsername)
	if err != nil {
		s.replyError(err, "send")
		return
	}

	msgType := domain.MessageType(action.MessageType)
	if action.MessageType == "" {
		msgType = domain.MessageTypeText
	}

	msg, err := s.messages.Send(ctx, s.conversationID, sender.ID, service.SendInput{
		Content:     action.Content,
		MessageType: msgType,
		AudioBase64: action.AudioDataBase64,
	})
	if err != nil {
		s.replyError(err, "send")
		return
	}

	resp, err := s.messages.ToResponse(ctx, msg)
	if err != nil {
		log.Printf("ws: message response: %v", err)
		s.reply("failed to send message")
		return
	}
	s.hub.Publish(s.conversationID, resp)
}

func (s *session) handleEdit(ctx context.Context, action inboundAction) {
	if action.MessageID == 0 || action.Content == "" || action.SenderUsername == "" {
		s.reply("Missing required fields for editing message")
		return
	}

	sender, err := s.users.ResolveByUsername(ctx, action.SenderUsername)
	if err != nil {
		s.replyError(err, "edit")
		return
	}

	msg, err := s.messages.Edit(ctx, sender.ID, action.MessageID, action.Content)
	if err != nil {
		s.replyError(err, "edit")
		return
	}

	resp, err := s.messages.ToResponse(ctx, msg)
	if err != nil {
		log.Printf("ws: message response: %v", err)
		s.reply("failed to edit message")
		return
	}
	s.hub.Publish(s.conversationID, EditEvent{
		ActionType:     "edit",
		ID:             msg.ID,
		Content:        resp.Content,
		SenderUsername: sender.Username,
		Timestamp:      msg.CreatedAt,
		MessageType:    string(msg.MessageType),
	})
}

func (s *session) handleDelete(ctx context.Context, action inboundAction) {
	if action.MessageID == 0 || action.SenderUsername == "" {
		s.reply("Missing required fields for deleting message")
		return
	}

	sender, err := s.users.ResolveByUsername(ctx, action.SenderUsername)
	if err != nil {
		s.replyError(err, "delete")
		return
	}

	msg, err := s.messages.Delete(ctx, sender.ID, action.MessageID)
	if err != nil {
		s.replyError(err, "delete")
		return
	}

	s.hub.Publish(s.conversationID, DeleteEvent{
		ActionType:     "delete",
		ID:             msg.ID,
		SenderUsername: sender.Username,
	})
}

// replyError maps a service failure to the local error reply for this
// connection. Other participants of the conversation never observe it.
func (s *session) replyError(err error, op string) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.reply("User not found")
	case errors.Is(err, domain.ErrNotFound):
		if op == "send" {
			s.reply("Conversation not found")
		} else {
			s.reply("Message not found")
		}
	case errors.Is(err, domain.ErrForbidden):
		s.reply(fmt.Sprintf("You do not have permission to %s this message", op))
	case errors.Is(err, domain.ErrNoRecipient):
		s.reply("No recipient found in conversation")
	case errors.Is(err, domain.ErrInvalidMessage):
		s.reply(err.Error())
	default:
		log.Printf("ws: %s action: %v", op, err)
		s.reply(fmt.Sprintf("failed to %s message", op))
	}
}
