// Package domain contains core concepts of the support chat system.
// This file defines the Room entity and its invariants.
// A room is the single support conversation container owned by one end-user.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type RoomID string

// RoomTypeSupport is the only room type in the system.
// The uniqueness constraint on (CreatedBy, Type) is scoped to it.
const RoomTypeSupport = "support"

// Room is created on first chat open and never closed.
// UpdatedAt is bumped on every new message.
type Room struct {
	ID        RoomID
	CreatedBy string
	Type      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSupportRoom(createdBy string, at time.Time) Room {
	return Room{
		ID:        RoomID(uuid.NewString()),
		CreatedBy: createdBy,
		Type:      RoomTypeSupport,
		CreatedAt: at,
		UpdatedAt: at,
	}
}
