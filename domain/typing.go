package domain

import "time"

// TypingIndicator is an ephemeral per-(room, user) presence signal.
// A reader must treat it as expired once now - UpdatedAt exceeds the
// read-side TTL, whether or not a clear was ever observed.
type TypingIndicator struct {
	RoomID    RoomID
	UserID    string
	UpdatedAt time.Time
}
