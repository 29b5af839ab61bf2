package domain

import "time"

// PostMessageCommand is the inbound intent to append a message to a room.
// CreatedAt is set by the server when the command is built, never by clients.
type PostMessageCommand struct {
	Room      RoomID
	UserID    string
	Content   string
	CreatedAt time.Time
}

func (c PostMessageCommand) RoomID() RoomID { return c.Room }

// ListMessagesCommand resumes exactly after the message the cursor points at.
type ListMessagesCommand struct {
	Room   RoomID
	Cursor *string
	Limit  int
}

func (c ListMessagesCommand) RoomID() RoomID { return c.Room }
