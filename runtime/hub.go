// Package runtime handles event propagation between writers and live
// subscribers. It orchestrates delivery without containing domain rules.
package runtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/runtime/workers"
)

// Hub is the per-room publish/subscribe topic built on top of the store's
// writes: every committed insert to the message log and every typing change
// is published here and fanned out to the room's live subscribers.
//
// Delivery is at-least-once and ordered per room in commit order, but not
// exactly-once across reconnects: a subscriber that drops and resubscribes
// reconciles by listing messages from its last seen cursor.
type Hub struct {
	mu             sync.Mutex
	log            *slog.Logger
	registry       contract.IRegistry
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewHub(log *slog.Logger, registry contract.IRegistry, bufferSize int, sinkTimeout time.Duration) *Hub {
	return &Hub{
		log:         log,
		registry:    registry,
		events:      make(chan event.DomainEvent, bufferSize),
		sinkTimeout: sinkTimeout,
	}
}

// Publish enqueues an event for fan-out. It never blocks the write path:
// when the buffer is full the event is dropped and subscribers recover it
// through their next reconciliation list.
func (h *Hub) Publish(e event.DomainEvent) {
	select {
	case h.events <- e:
	default:
		h.log.Warn("Event buffer full, dropping event", "room_id", e.RoomID())
	}
}

// Subscribe attaches a sink to a room and returns the subscription ID used
// to detach it. Multiple independent subscribers per room are supported.
func (h *Hub) Subscribe(roomID domain.RoomID, sink contract.EventSink) string {
	subscriptionID := uuid.NewString()
	h.registry.Subscribe(subscriptionID, roomID, sink)
	return subscriptionID
}

// Unsubscribe releases all resources associated with the subscription
// immediately. No delivery attempt happens after it returns.
func (h *Hub) Unsubscribe(subscriptionID string, roomID domain.RoomID) {
	h.registry.Unsubscribe(subscriptionID, roomID)
}

// AddPermanentSinks registers sinks that receive events of every room,
// regardless of subscriptions. The admin aggregator lives here.
func (h *Hub) AddPermanentSinks(sinks ...contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.permanentSinks = append(h.permanentSinks, sinks...)
}

// FanoutWorker builds the worker draining the event buffer. Register every
// permanent sink before handing the worker to the supervisor.
func (h *Hub) FanoutWorker() contract.Worker {
	h.mu.Lock()
	defer h.mu.Unlock()
	return workers.NewEventFanout(h.log, h.permanentSinks, h.registry, h.events, h.sinkTimeout)
}
