package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"support-chat/domain"
	"support-chat/services"
)

type ChatHandler struct {
	log              *slog.Logger
	chatSvc          services.IChatService
	validate         *validator.Validate
	streamBufferSize int
}

func NewChatHandler(log *slog.Logger, chatSvc services.IChatService, validate *validator.Validate, streamBufferSize int) *ChatHandler {
	return &ChatHandler{log: log, chatSvc: chatSvc, validate: validate, streamBufferSize: streamBufferSize}
}

func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rooms", h.handleOpenRoom)
	r.Get("/rooms/{roomID}/messages", h.handleListMessages)
	r.Post("/rooms/{roomID}/messages", h.handlePostMessage)
	r.Put("/rooms/{roomID}/typing", h.handleSetTyping)
	r.Delete("/rooms/{roomID}/typing", h.handleClearTyping)
	r.Get("/rooms/{roomID}/typing", h.handleListTyping)
	r.Get("/rooms/{roomID}/ws", h.handleSubscribe)
}

type roomResponse struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"created_by"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        uint64    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// handleOpenRoom is idempotent: the same user always gets the same room,
// two tabs opening the chat at once included.
func (h *ChatHandler) handleOpenRoom(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID string `json:"user_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.chatSvc.GetOrCreateSupportRoom(payload.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoomResponse(room))
}

func (h *ChatHandler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	cmd := domain.ListMessagesCommand{
		Room: domain.RoomID(chi.URLParam(r, "roomID")),
	}
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		cmd.Cursor = &cursor
	}
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		cmd.Limit = limit
	}

	messages, cursor, err := h.chatSvc.GetMessages(cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"messages": lo.Map(messages, func(item domain.Message, _ int) messageResponse {
			return toMessageResponse(item)
		}),
		"cursor": cursor,
	})
}

func (h *ChatHandler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID  string `json:"user_id" validate:"required"`
		Content string `json:"content" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.chatSvc.PostMessage(r.Context(), domain.PostMessageCommand{
		Room:      domain.RoomID(chi.URLParam(r, "roomID")),
		UserID:    payload.UserID,
		Content:   payload.Content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMessageResponse(message))
}

func (h *ChatHandler) handleSetTyping(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.typingUser(w, r)
	if !ok {
		return
	}
	h.chatSvc.SetTyping(domain.RoomID(chi.URLParam(r, "roomID")), userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) handleClearTyping(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.typingUser(w, r)
	if !ok {
		return
	}
	h.chatSvc.ClearTyping(domain.RoomID(chi.URLParam(r, "roomID")), userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) typingUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload struct {
		UserID string `json:"user_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if err := h.validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return payload.UserID, true
}

func (h *ChatHandler) handleListTyping(w http.ResponseWriter, r *http.Request) {
	typing := h.chatSvc.ListTyping(
		domain.RoomID(chi.URLParam(r, "roomID")),
		r.URL.Query().Get("exclude"),
	)
	if typing == nil {
		typing = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"typing": typing})
}

func toRoomResponse(room domain.Room) roomResponse {
	return roomResponse{
		ID:        string(room.ID),
		CreatedBy: room.CreatedBy,
		Type:      room.Type,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func toMessageResponse(message domain.Message) messageResponse {
	return messageResponse{
		ID:        uint64(message.ID),
		RoomID:    string(message.RoomID),
		UserID:    message.UserID,
		Content:   message.Content,
		Kind:      message.Kind,
		CreatedAt: message.CreatedAt,
	}
}
