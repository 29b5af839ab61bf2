// Package admin composes every support room into the summary view used by
// the staff aggregation panel.
package admin

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/identity"
	"support-chat/repositories"
)

const previewLength = 80

// Aggregator reconciles two refresh paths:
//   - a periodic poll recomputes every room's summary from the store, the
//     ground truth;
//   - MessageInserted events from the hub trigger an early, targeted
//     recompute of the affected room, the low-latency hint.
//
// Neither path is trusted exclusively. All recomputes run through one
// bounded worker pool so the store never sees more than numWorkers
// concurrent count queries regardless of how many rooms exist.
//
// Aggregator is both a contract.Worker (the pool and the poll loop) and a
// contract.EventSink (registered as a permanent sink on the hub).
type Aggregator struct {
	mu           sync.RWMutex
	log          *slog.Logger
	rooms        repositories.IRoomRepository
	messages     repositories.IMessageRepository
	directory    identity.Directory
	pollInterval time.Duration
	numWorkers   int
	jobs         chan domain.RoomID
	summaries    map[domain.RoomID]domain.RoomSummary
	listeners    map[string]chan domain.RoomSummary
}

var (
	_ contract.Worker    = (*Aggregator)(nil)
	_ contract.EventSink = (*Aggregator)(nil)
)

func NewAggregator(
	log *slog.Logger,
	rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository,
	directory identity.Directory,
	pollInterval time.Duration,
	numWorkers int,
) *Aggregator {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Aggregator{
		log:          log,
		rooms:        rooms,
		messages:     messages,
		directory:    directory,
		pollInterval: pollInterval,
		numWorkers:   numWorkers,
		jobs:         make(chan domain.RoomID, numWorkers*4),
		summaries:    make(map[domain.RoomID]domain.RoomSummary),
		listeners:    make(map[string]chan domain.RoomSummary),
	}
}

// Run starts the recompute pool and the poll loop. An initial full poll
// runs immediately so the panel is populated before the first tick.
func (a *Aggregator) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < a.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case roomID := <-a.jobs:
					a.recompute(ctx, roomID)
				}
			}
		}()
	}

	a.poll()
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			a.poll()
		}
	}
}

// Consume implements the permanent-sink side: a committed message triggers
// an early recompute of its room without waiting for the next poll.
// Typing changes never alter a summary and are ignored.
func (a *Aggregator) Consume(_ context.Context, e event.DomainEvent) error {
	if _, ok := e.(event.MessageInserted); !ok {
		return nil
	}
	a.enqueue(e.RoomID())
	return nil
}

// poll enqueues every support room for recompute and drops summaries of
// rooms that disappeared from the store.
func (a *Aggregator) poll() {
	rooms, err := a.rooms.ListSupportRooms()
	if err != nil {
		a.log.Warn("Summary poll failed, keeping previous summaries", "error", err)
		return
	}

	known := make(map[domain.RoomID]struct{}, len(rooms))
	for _, room := range rooms {
		known[room.ID] = struct{}{}
		a.enqueue(room.ID)
	}

	a.mu.Lock()
	for roomID := range a.summaries {
		if _, ok := known[roomID]; !ok {
			delete(a.summaries, roomID)
		}
	}
	a.mu.Unlock()
}

// enqueue hands a room to the pool without ever blocking the caller: when
// the pool is saturated the job is dropped, the next poll covers it.
func (a *Aggregator) enqueue(roomID domain.RoomID) {
	select {
	case a.jobs <- roomID:
	default:
		a.log.Debug("Recompute pool saturated, deferring to next poll", "room_id", roomID)
	}
}

// recompute rebuilds the summary of one room from the store.
//
// UnreadCount counts every message the member ever sent, the semantics the
// admin panel shipped with. It is not "unseen since the staff's last
// visit". Kept as observed pending product clarification.
func (a *Aggregator) recompute(ctx context.Context, roomID domain.RoomID) {
	room, err := a.rooms.GetRoom(roomID)
	if err != nil {
		a.log.Debug("Skipping summary for unknown room", "room_id", roomID, "error", err)
		return
	}
	unread, err := a.messages.CountByAuthor(room.ID, room.CreatedBy)
	if err != nil {
		a.log.Warn("Unread count failed", "room_id", roomID, "error", err)
		return
	}
	last, err := a.messages.Last(room.ID)
	if err != nil {
		a.log.Warn("Last message lookup failed", "room_id", roomID, "error", err)
		return
	}

	displayName := room.CreatedBy
	if resolved, err := a.directory.ResolveIdentity(ctx, room.CreatedBy); err == nil {
		displayName = resolved.FullName()
	}

	summary := domain.RoomSummary{
		Room:        room,
		DisplayName: displayName,
		UnreadCount: unread,
	}
	if last != nil {
		summary.LastMessagePreview = preview(last.Content)
	}

	a.mu.Lock()
	a.summaries[room.ID] = summary
	a.mu.Unlock()
	a.notify(summary)
}

// Summaries returns the current panel content, newest activity first.
func (a *Aggregator) Summaries() []domain.RoomSummary {
	a.mu.RLock()
	summaries := lo.Values(a.summaries)
	a.mu.RUnlock()
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Room.UpdatedAt.After(summaries[j].Room.UpdatedAt)
	})
	return summaries
}

// Listen registers a channel receiving every refreshed summary, used by the
// admin panel's realtime stream. The returned function detaches it.
func (a *Aggregator) Listen(bufferSize int) (<-chan domain.RoomSummary, func()) {
	id := uuid.NewString()
	ch := make(chan domain.RoomSummary, bufferSize)
	a.mu.Lock()
	a.listeners[id] = ch
	a.mu.Unlock()
	return ch, func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Aggregator) notify(summary domain.RoomSummary) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, listener := range a.listeners {
		select {
		case listener <- summary:
		default:
			// A stalled panel catches up on its next full fetch.
		}
	}
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "…"
}
