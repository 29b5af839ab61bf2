package runtime

import (
	"sync"

	"support-chat/contract"
	"support-chat/domain"
)

type Set map[string]struct{}

// Registry tracks live subscriptions. A subscription is one open stream:
// the same user with two tabs holds two independent subscriptions.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.EventSink // map subscription -> sink
	roomMembers map[domain.RoomID]Set         // map room -> subscriptions
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.EventSink),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// GetSinksForRoom retrieves all active delivery channels for a specific room.
// It performs a two-step lookup:
// 1. Identifies subscription IDs associated with the room via roomMembers.
// 2. Resolves those IDs into actual EventSinks using the sessions map.
//
// Returns nil if the room has no live subscribers.
func (r *Registry) GetSinksForRoom(roomID domain.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for subscriptionID := range members {
		if sink, exists := r.sessions[subscriptionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a live stream and assigns it to a specific room.
// If the room does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Subscribe(subscriptionID string, roomID domain.RoomID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[subscriptionID] = sink

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][subscriptionID] = struct{}{}
}

// Unsubscribe removes a subscription from the registry and its room,
// releasing the sink immediately: no delivery attempt happens after this
// call returns. Empty room sets are dropped to prevent slow leaks.
func (r *Registry) Unsubscribe(subscriptionID string, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, subscriptionID)

	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, subscriptionID)

		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}
