package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"duochat/internal/domain"
	"duochat/internal/service"
)

type conversationCreateRequest struct {
	RecipientIdentifier string `json:"recipient_identifier"`
}

// @Summary      Start a conversation
// @Description  Find or create the conversation with the given recipient
// @Tags         conversations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body conversationCreateRequest true "Recipient phone number or username"
// @Success      201  {object}  service.ConversationResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations [post]
func handleCreateConversation(convSvc *service.ConversationService, userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req conversationCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		identifier := strings.TrimSpace(req.RecipientIdentifier)
		if identifier == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recipient_identifier is required"})
			return
		}

		recipient, err := userSvc.ResolveByIdentifier(r.Context(), identifier)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		conv, err := convSvc.FindOrCreate(r.Context(), currentUser.ID, recipient.ID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidMessage) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, convSvc.ToResponse(r.Context(), conv, currentUser.ID))
	}
}

// @Summary      List conversations
// @Description  List the caller's conversations, most recently active first
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   service.ConversationResponse
// @Failure      401  {object}  map[string]string
// @Router       /conversations [get]
func handleListConversations(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convs, err := convSvc.List(r.Context(), currentUser.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, convs)
	}
}

// @Summary      Delete a conversation
// @Description  Hide the conversation for the caller and stamp its deletion watermark
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID} [delete]
func handleDeleteConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		idStr := chi.URLParam(r, "conversationID")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		if err := convSvc.SoftDelete(r.Context(), id, currentUser.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Conversation deleted successfully",
		})
	}
}
