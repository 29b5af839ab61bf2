package sink

import (
	"context"
	"log/slog"

	"support-chat/domain/event"
)

// StreamSink bridges the fan-out and one open subscription stream.
// The transport handler owns the reading side of Events.
type StreamSink struct {
	Events chan event.DomainEvent
	log    *slog.Logger
}

func NewStreamSink(log *slog.Logger, bufferSize int) *StreamSink {
	return &StreamSink{Events: make(chan event.DomainEvent, bufferSize), log: log}
}

// Consume is called by the fan-out worker.
// It hands the event to the owning stream without ever blocking the
// fan-out: when the subscriber's buffer is full the event is dropped and
// the subscriber recovers it through its next reconciliation list.
func (s *StreamSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Debug("Subscriber buffer full, dropping event", "room_id", e.RoomID())
		return nil
	}
}
