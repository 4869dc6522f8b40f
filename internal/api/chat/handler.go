// Package chat exposes the messaging REST surface. Handlers decode and
// validate the request, resolve the authenticated user from the context,
// and delegate to the chat service.
package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/apperr"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/auth"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/chat"
)

type Handler struct {
	service         *chat.Service
	log             *slog.Logger
	validate        *validator.Validate
	defaultPageSize int
}

func NewHandler(service *chat.Service, defaultPageSize int, log *slog.Logger) *Handler {
	return &Handler{
		service:         service,
		log:             log,
		validate:        validator.New(),
		defaultPageSize: defaultPageSize,
	}
}

type startConversationRequest struct {
	ListingID string `json:"listingId" validate:"required"`
	SellerID  string `json:"sellerId" validate:"required"`
}

// StartConversation creates or returns the conversation between the caller
// and the seller over a listing. 201 on first contact, 200 when it already
// existed.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, apperr.Validation("please provide listingId and sellerId"))
		return
	}

	user := auth.UserFromContext(r)
	view, created, err := h.service.StartConversation(r.Context(), user.ID, req.SellerID, req.ListingID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, map[string]any{
		"success":      true,
		"conversation": view,
	})
}

// ListConversations returns the caller's conversations, most recently
// active first.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	views, err := h.service.ListConversations(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"conversations": views,
	})
}

// GetConversation returns one conversation; only participants may see it.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	view, err := h.service.GetConversation(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"conversation": view,
	})
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Content        string `json:"content" validate:"required"`
}

// SendMessage appends a message and broadcasts it to the conversation room.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, apperr.Validation("please provide conversationId and message content"))
		return
	}

	user := auth.UserFromContext(r)
	msg, err := h.service.Send(r.Context(), req.ConversationID, user.ID, req.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": msg,
	})
}

// GetMessages returns one page of a conversation's history, oldest first,
// and marks the conversation read for the caller.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", h.defaultPageSize)

	result, err := h.service.Page(r.Context(), mux.Vars(r)["id"], user.ID, page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"messages":   result.Messages,
		"pagination": result.Pagination,
	})
}

// UnreadCount returns the caller's total unread message count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	count, err := h.service.UnreadCount(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"unreadCount": count,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if apperr.CodeOf(err) == apperr.CodeInternal {
		h.log.Error("request failed", "error", err)
	}
	h.writeJSON(w, apperr.HTTPStatus(err), map[string]any{
		"success": false,
		"message": apperr.MessageOf(err),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
