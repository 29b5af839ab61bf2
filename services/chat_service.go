//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"strings"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/errors"
	"support-chat/moderation"
	"support-chat/presence"
	"support-chat/repositories"
)

type IChatService interface {
	GetOrCreateSupportRoom(userID string) (domain.Room, error)
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	GetMessages(cmd domain.ListMessagesCommand) ([]domain.Message, *string, error)
	SetTyping(roomID domain.RoomID, userID string)
	ClearTyping(roomID domain.RoomID, userID string)
	ListTyping(roomID domain.RoomID, excludeUserID string) []string
	JoinRoom(roomID domain.RoomID, sink contract.EventSink) string
	LeaveRoom(subscriptionID string, roomID domain.RoomID, userID string)
}

// ChatService composes the room directory, the message log, the typing
// tracker, and the hub into the operations the transport exposes.
type ChatService struct {
	rooms            repositories.IRoomRepository
	messages         repositories.IMessageRepository
	tracker          presence.ITracker
	hub              contract.IHub
	moderator        *moderation.Moderator
	maxContentLength int
}

func NewChatService(
	rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository,
	tracker presence.ITracker,
	hub contract.IHub,
	moderator *moderation.Moderator,
	maxContentLength int,
) *ChatService {
	return &ChatService{
		rooms:            rooms,
		messages:         messages,
		tracker:          tracker,
		hub:              hub,
		moderator:        moderator,
		maxContentLength: maxContentLength,
	}
}

// GetOrCreateSupportRoom returns the caller's single support room,
// creating it together with its member participant row on first open.
func (s *ChatService) GetOrCreateSupportRoom(userID string) (domain.Room, error) {
	room, _, err := s.rooms.GetOrCreateSupportRoom(userID)
	return room, err
}

// PostMessage validates, censors, and appends the message, then publishes
// MessageInserted. The append transaction also bumps the room's UpdatedAt,
// so a committed message and its room bump never diverge. Sending implies
// the author stopped typing, so the indicator is cleared before the message
// event goes out.
func (s *ChatService) PostMessage(_ context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if len(content) > s.maxContentLength {
		return domain.Message{}, errors.ErrContentTooLong
	}
	if _, err := s.rooms.GetRoom(cmd.Room); err != nil {
		return domain.Message{}, err
	}
	if s.moderator != nil {
		content = s.moderator.Censor(content)
	}

	message, err := s.messages.Append(cmd.Room, cmd.UserID, content, cmd.CreatedAt)
	if err != nil {
		return domain.Message{}, err
	}

	s.ClearTyping(cmd.Room, cmd.UserID)
	s.hub.Publish(event.MessageInserted{Message: message})
	return message, nil
}

func (s *ChatService) GetMessages(cmd domain.ListMessagesCommand) ([]domain.Message, *string, error) {
	if _, err := s.rooms.GetRoom(cmd.Room); err != nil {
		return nil, nil, err
	}
	return s.messages.List(cmd.Room, cmd.Cursor, cmd.Limit)
}

// SetTyping upserts the caller's typing indicator. Clients debounce the
// refresh to a fixed interval while typing; the server just records it.
func (s *ChatService) SetTyping(roomID domain.RoomID, userID string) {
	s.tracker.Set(roomID, userID)
	s.hub.Publish(event.TypingChanged{Room: roomID, UserID: userID, IsTyping: true})
}

// ClearTyping removes the indicator. The change is only published when an
// indicator existed, so repeated clears stay silent.
func (s *ChatService) ClearTyping(roomID domain.RoomID, userID string) {
	if s.tracker.Clear(roomID, userID) {
		s.hub.Publish(event.TypingChanged{Room: roomID, UserID: userID, IsTyping: false})
	}
}

func (s *ChatService) ListTyping(roomID domain.RoomID, excludeUserID string) []string {
	return s.tracker.List(roomID, excludeUserID)
}

// JoinRoom attaches a live event stream to the room and returns its
// subscription ID.
func (s *ChatService) JoinRoom(roomID domain.RoomID, sink contract.EventSink) string {
	return s.hub.Subscribe(roomID, sink)
}

// LeaveRoom is the mandatory cleanup when a chat window closes: the typing
// indicator is cleared synchronously before the stream is released.
func (s *ChatService) LeaveRoom(subscriptionID string, roomID domain.RoomID, userID string) {
	s.ClearTyping(roomID, userID)
	s.hub.Unsubscribe(subscriptionID, roomID)
}
