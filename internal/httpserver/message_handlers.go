package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"duochat/internal/domain"
	"duochat/internal/service"
	"duochat/internal/ws"
)

type directMessageRequest struct {
	RecipientIdentifier string `json:"recipient_identifier"`
	Content             string `json:"content"`
}

type messageCreateRequest struct {
	Content         string `json:"content"`
	MessageType     string `json:"message_type"`
	AudioDataBase64 string `json:"audio_data_base64"`
}

type messageEditRequest struct {
	Content string `json:"content"`
}

// @Summary      Send a direct message
// @Description  Resolve the recipient, find or create the pair conversation, and append a text message
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body directMessageRequest true "Recipient and content"
// @Success      201  {object}  service.MessageResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /messages/send [post]
func handleSendDirect(msgSvc *service.MessageService, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req directMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msg, err := msgSvc.SendDirect(r.Context(), currentUser.ID, req.RecipientIdentifier, req.Content)
		if err != nil {
			writeMessageError(w, err, "Conversation not found")
			return
		}

		resp, err := msgSvc.ToResponse(r.Context(), msg)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		hub.Publish(msg.ConversationID, resp)
		writeJSON(w, http.StatusCreated, resp)
	}
}

// @Summary      Send a message in a conversation
// @Description  Append a text or audio message to an existing conversation
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        conversationID path int true "Conversation ID"
// @Param        input body messageCreateRequest true "Message content"
// @Success      201  {object}  service.MessageResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID}/messages [post]
func handleCreateMessage(msgSvc *service.MessageService, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		var req messageCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msg, err := msgSvc.Send(r.Context(), convID, currentUser.ID, service.SendInput{
			Content:     req.Content,
			MessageType: domain.MessageType(req.MessageType),
			AudioBase64: req.AudioDataBase64,
		})
		if err != nil {
			writeMessageError(w, err, "Conversation not found")
			return
		}

		resp, err := msgSvc.ToResponse(r.Context(), msg)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		hub.Publish(convID, resp)
		writeJSON(w, http.StatusCreated, resp)
	}
}

// @Summary      List conversation messages
// @Description  Return the caller's visible slice of the conversation history
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        conversationID path int true "Conversation ID"
// @Success      200  {array}   service.MessageResponse
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID}/messages [get]
func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}

		msgs, err := msgSvc.ListVisible(r.Context(), convID, currentUser.ID)
		if err != nil {
			writeMessageError(w, err, "Conversation not found")
			return
		}

		responses, err := msgSvc.ToResponses(r.Context(), msgs)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, responses)
	}
}

// @Summary      Edit a message
// @Description  Replace the content of a text message the caller owns
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        messageID path int true "Message ID"
// @Param        input body messageEditRequest true "New content"
// @Success      200  {object}  service.MessageResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /messages/{messageID} [put]
func handleEditMessage(msgSvc *service.MessageService, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		msgID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}
		var req messageEditRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msg, err := msgSvc.Edit(r.Context(), currentUser.ID, msgID, req.Content)
		if err != nil {
			writeMessageError(w, err, "Message not found")
			return
		}

		resp, err := msgSvc.ToResponse(r.Context(), msg)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		hub.Publish(msg.ConversationID, ws.EditEvent{
			ActionType:     "edit",
			ID:             msg.ID,
			Content:        resp.Content,
			SenderUsername: currentUser.Username,
			Timestamp:      msg.CreatedAt,
			MessageType:    string(msg.MessageType),
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

// @Summary      Delete a message
// @Description  Permanently remove a message the caller owns
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        messageID path int true "Message ID"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  map[string]string
// @Router       /messages/{messageID} [delete]
func handleDeleteMessage(msgSvc *service.MessageService, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		msgID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}

		msg, err := msgSvc.Delete(r.Context(), currentUser.ID, msgID)
		if err != nil {
			writeMessageError(w, err, "Message not found")
			return
		}

		hub.Publish(msg.ConversationID, ws.DeleteEvent{
			ActionType:     "delete",
			ID:             msg.ID,
			SenderUsername: currentUser.Username,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Message deleted successfully",
		})
	}
}

// writeMessageError maps message and conversation service failures to HTTP
// statuses. notFound names the resource that was being looked up. Ownership
// failures surface as 404 so a caller probing another user's message ids
// cannot tell existence from denial.
func writeMessageError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound})
	case errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
	case errors.Is(err, domain.ErrNoRecipient):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No recipient found in conversation"})
	case errors.Is(err, domain.ErrInvalidMessage):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
