// Package domain contains core concepts of the support chat system.
// This file defines Participant entities and related invariants.
// Staff are implicit participants of every support room and carry no row.
package domain

const (
	RoleMember = "member"
	RoleStaff  = "staff"
)

// Participant links a user to a room. One row is created alongside the
// room for its creator; no other rows are ever written.
type Participant struct {
	RoomID RoomID
	UserID string
	Role   string
}
