package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"support-chat/admin"
	"support-chat/domain"
)

type AdminHandler struct {
	log              *slog.Logger
	aggregator       *admin.Aggregator
	streamBufferSize int
}

func NewAdminHandler(log *slog.Logger, aggregator *admin.Aggregator, streamBufferSize int) *AdminHandler {
	return &AdminHandler{log: log, aggregator: aggregator, streamBufferSize: streamBufferSize}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/rooms", h.handleListRooms)
	r.Get("/admin/ws", h.handleSummaryStream)
}

type roomSummaryResponse struct {
	Room               roomResponse `json:"room"`
	DisplayName        string       `json:"display_name"`
	UnreadCount        int          `json:"unread_count"`
	LastMessagePreview string       `json:"last_message_preview"`
}

// handleListRooms serves the poll side of the panel: the full summary list,
// newest activity first.
func (h *AdminHandler) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	summaries := h.aggregator.Summaries()
	respondJSON(w, http.StatusOK, map[string]any{
		"rooms": lo.Map(summaries, func(item domain.RoomSummary, _ int) roomSummaryResponse {
			return toRoomSummaryResponse(item)
		}),
	})
}

// handleSummaryStream serves the push side: every refreshed summary is
// streamed as it is recomputed, so staff see updates without waiting for
// their next poll.
func (h *AdminHandler) handleSummaryStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	summaries, detach := h.aggregator.Listen(h.streamBufferSize)
	defer detach()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case summary := <-summaries:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toRoomSummaryResponse(summary)); err != nil {
				h.log.Debug("Summary stream write failed", "error", err)
				return
			}
		}
	}
}

func toRoomSummaryResponse(summary domain.RoomSummary) roomSummaryResponse {
	return roomSummaryResponse{
		Room:               toRoomResponse(summary.Room),
		DisplayName:        summary.DisplayName,
		UnreadCount:        summary.UnreadCount,
		LastMessagePreview: summary.LastMessagePreview,
	}
}
