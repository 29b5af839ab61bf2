package workers

import (
	"context"
	"log/slog"
	"time"

	"support-chat/contract"
	"support-chat/domain/event"
)

// Ensure *EventFanout implements the contract.Worker interface at compile time.
var _ contract.Worker = (*EventFanout)(nil)

// EventFanout drains the hub's event buffer and delivers each event to the
// sinks subscribed to its room, plus the permanent sinks that observe every
// room (the admin aggregator).
//
// Delivery per sink is bounded by sinkTimeout so one slow subscriber cannot
// stall the others. A delivery that times out is dropped for that sink; the
// subscriber recovers through its reconciliation list.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	log            *slog.Logger
	permanentSinks []contract.EventSink
	registry       contract.IRegistry
	events         chan event.DomainEvent
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, permanentSinks []contract.EventSink,
	registry contract.IRegistry, events chan event.DomainEvent,
	sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:            log,
		permanentSinks: permanentSinks,
		registry:       registry,
		events:         events,
		sinkTimeout:    sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fan-out")
			return nil
		}
	}
}

// Fanout delivers one event to every sink of its room. Sinks are resolved
// at delivery time, so a subscription removed between publish and fan-out
// never receives the event.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	roomSinks := w.registry.GetSinksForRoom(evt.RoomID())
	for _, sink := range append(roomSinks, w.permanentSinks...) {
		w.deliver(ctx, sink, evt)
	}
}

func (w *EventFanout) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(deliveryCtx, evt); err != nil {
		w.log.Debug("Sink delivery failed", "room_id", evt.RoomID(), "error", err)
	}
}
