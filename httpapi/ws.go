package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/sink"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks belong to the outer deployment, not the chat core.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// wireEvent is the JSON frame pushed on a room subscription stream.
type wireEvent struct {
	Type     string           `json:"type"`
	Message  *messageResponse `json:"message,omitempty"`
	RoomID   string           `json:"room_id,omitempty"`
	UserID   string           `json:"user_id,omitempty"`
	IsTyping bool             `json:"is_typing,omitempty"`
}

// handleSubscribe holds an open websocket carrying the room's events until
// the client disconnects. Subscribing gives no replay: the client lists
// messages from its last seen cursor right after connecting, and again
// after every reconnect, to cover any gap.
//
// Closing the stream performs the mandatory cleanup: clear the user's
// typing indicator, then release the subscription.
func (h *ChatHandler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	roomID := domain.RoomID(chi.URLParam(r, "roomID"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	streamSink := sink.NewStreamSink(h.log, h.streamBufferSize)
	subscriptionID := h.chatSvc.JoinRoom(roomID, streamSink)
	defer h.chatSvc.LeaveRoom(subscriptionID, roomID, userID)

	// Reader goroutine: the client sends nothing meaningful, but reading
	// is how gorilla surfaces close frames and dead peers.
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
			h.log.Debug("Subscriber disconnected", "room_id", roomID, "user_id", userID)
			return
		case <-r.Context().Done():
			return
		case evt := <-streamSink.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toWireEvent(evt)); err != nil {
				h.log.Debug("Websocket write failed", "room_id", roomID, "error", err)
				return
			}
		}
	}
}

func toWireEvent(e event.DomainEvent) wireEvent {
	switch evt := e.(type) {
	case event.MessageInserted:
		message := toMessageResponse(evt.Message)
		return wireEvent{Type: "message_inserted", Message: &message}
	case event.TypingChanged:
		return wireEvent{
			Type:     "typing_changed",
			RoomID:   string(evt.Room),
			UserID:   evt.UserID,
			IsTyping: evt.IsTyping,
		}
	default:
		return wireEvent{Type: "unknown"}
	}
}
