package domain

// RoomSummary is the per-room line of the staff aggregation panel.
//
// UnreadCount counts every message the room creator ever sent. This
// matches the admin panel as shipped: it is the total of member messages,
// not messages unseen since the staff's last visit. Kept as-is pending
// product clarification.
type RoomSummary struct {
	Room               Room
	DisplayName        string
	UnreadCount        int
	LastMessagePreview string
}
