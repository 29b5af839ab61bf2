//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"support-chat/domain"
	"support-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives events fanned out by the hub.
// Consume must not block longer than the delivery timeout it is given.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks live subscriptions per room.
type IRegistry interface {
	GetSinksForRoom(roomID domain.RoomID) []EventSink
	Subscribe(subscriptionID string, roomID domain.RoomID, sink EventSink)
	Unsubscribe(subscriptionID string, roomID domain.RoomID)
}

// IHub is the publish side of the fan-out. Every committed write to the
// message store or the presence tracker goes through Publish.
type IHub interface {
	Publish(e event.DomainEvent)
	Subscribe(roomID domain.RoomID, sink EventSink) (subscriptionID string)
	Unsubscribe(subscriptionID string, roomID domain.RoomID)
	AddPermanentSinks(sinks ...EventSink)
}
