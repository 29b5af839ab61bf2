//go:generate go run go.uber.org/mock/mockgen -source=tracker.go -destination=../mocks/mock_tracker.go -package=mocks
// Package presence tracks ephemeral typing indicators.
//
// Indicators live in memory only: correctness requires age-based filtering
// on read, not durability, so persisting every keystroke would be pure
// write amplification. A missed clear (client crash, dropped connection)
// costs at most one TTL of staleness.
package presence

import (
	"sync"
	"time"

	"support-chat/domain"
)

type ITracker interface {
	Set(roomID domain.RoomID, userID string)
	Clear(roomID domain.RoomID, userID string) bool
	List(roomID domain.RoomID, excludeUserID string) []string
	Sweep() int
}

type indicatorKey struct {
	room domain.RoomID
	user string
}

type Tracker struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[indicatorKey]time.Time
	now     func() time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		ttl:     ttl,
		entries: make(map[indicatorKey]time.Time),
		now:     time.Now,
	}
}

// Set upserts the indicator for (roomID, userID). Concurrent calls from the
// same pair race-collapse to the latest timestamp; only freshness matters.
// It is cheap enough to call on every keystroke, though clients debounce.
func (t *Tracker) Set(roomID domain.RoomID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[indicatorKey{room: roomID, user: userID}] = t.now().UTC()
}

// Clear removes the indicator, called on send and on leaving the chat.
// It reports whether an indicator was present.
func (t *Tracker) Clear(roomID domain.RoomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := indicatorKey{room: roomID, user: userID}
	_, ok := t.entries[key]
	delete(t.entries, key)
	return ok
}

// List returns the users typing in roomID, excluding excludeUserID.
// An indicator older than the TTL is excluded whether or not a clear was
// ever observed, which keeps readers correct across missed clear events.
func (t *Tracker) List(roomID domain.RoomID, excludeUserID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	deadline := t.now().UTC().Add(-t.ttl)
	var typing []string
	for key, updatedAt := range t.entries {
		if key.room != roomID || key.user == excludeUserID {
			continue
		}
		if updatedAt.Before(deadline) {
			continue
		}
		typing = append(typing, key.user)
	}
	return typing
}

// Sweep physically deletes entries older than the TTL and returns how many
// were removed. Reads already filter by age, so this only bounds memory;
// it runs on its own timer, never on the write path.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline := t.now().UTC().Add(-t.ttl)
	removed := 0
	for key, updatedAt := range t.entries {
		if updatedAt.Before(deadline) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}
