package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/mocks"
)

func Test_EventFanout_Delivers_To_Room_And_Permanent_Sinks(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	roomSink := mocks.NewMockEventSink(ctrl)
	permanentSink := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, []contract.EventSink{permanentSink},
		mockRegistry, nil, time.Second)

	evt := event.TypingChanged{Room: "room-1", UserID: "alice", IsTyping: true}

	// Given one live subscription on the room
	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomID("room-1")).
		Return([]contract.EventSink{roomSink}).Times(1)
	// Then both the room sink and the permanent sink consume the event
	roomSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	permanentSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout.Fanout(context.Background(), evt)
}

func Test_EventFanout_Sink_Timeout_Does_Not_Block_Others(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	slowSink := mocks.NewMockEventSink(ctrl)
	fastSink := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	fanout := NewEventFanout(log, nil, mockRegistry, nil, sinkTimeout)

	evt := event.TypingChanged{Room: "room-1", UserID: "alice", IsTyping: true}

	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomID("room-1")).
		Return([]contract.EventSink{slowSink, fastSink}).Times(1)
	// The slow sink blocks until the per-delivery deadline fires.
	slowSink.EXPECT().Consume(gomock.Any(), evt).
		DoAndReturn(func(ctx context.Context, _ event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).Times(1)
	// The next sink is still served.
	fastSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout.Fanout(context.Background(), evt)
}

func Test_EventFanout_Run_Drains_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	roomSink := mocks.NewMockEventSink(ctrl)
	events := make(chan event.DomainEvent, 4)

	fanout := NewEventFanout(log, nil, mockRegistry, events, time.Second)

	delivered := make(chan struct{})
	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomID("room-1")).
		Return([]contract.EventSink{roomSink}).Times(1)
	roomSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, event.DomainEvent) error {
			close(delivered)
			return nil
		}).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fanout.Run(ctx) }()

	events <- event.TypingChanged{Room: "room-1", UserID: "alice", IsTyping: true}

	select {
	case <-delivered:
	case <-time.After(time.Second):
		req.Fail("event was not delivered in time")
	}

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("worker did not stop on cancellation")
	}
}
