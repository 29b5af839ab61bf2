// Package domain contains core concepts of the support chat system.
// This file defines Message entries and related rules.
// Messages are immutable once appended: there is no update or delete path.
package domain

import "time"

const MessageKindText = "text"

// MessageID is assigned by the store from a monotonic sequence.
// Within a room, messages are totally ordered by (CreatedAt, ID) ascending.
type MessageID uint64

// Message represents an immutable chat entry.
type Message struct {
	ID        MessageID
	RoomID    RoomID
	UserID    string
	Content   string
	Kind      string
	CreatedAt time.Time
}
