package event

import (
	"support-chat/domain"
)

// DomainEvent is anything the hub can deliver to room subscribers.
type DomainEvent interface {
	RoomID() domain.RoomID
}

// MessageInserted is published after a message has been committed to the store.
// Subscribers receive it at-least-once, in commit order within the room.
type MessageInserted struct {
	Message domain.Message
}

func (e MessageInserted) RoomID() domain.RoomID { return e.Message.RoomID }

// TypingChanged is published on every typing upsert or clear.
type TypingChanged struct {
	Room     domain.RoomID
	UserID   string
	IsTyping bool
}

func (e TypingChanged) RoomID() domain.RoomID { return e.Room }
