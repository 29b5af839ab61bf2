package repositories

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"support-chat/domain"
	"support-chat/errors"
)

func newRoomRepository(t *testing.T) RoomRepository {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRoomRepository(db, slog.Default())
}

func Test_GetOrCreateSupportRoom_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	first, created, err := repository.GetOrCreateSupportRoom("alice")
	req.NoError(err)
	req.True(created)
	req.Equal(domain.RoomTypeSupport, first.Type)
	req.Equal("alice", first.CreatedBy)

	second, created, err := repository.GetOrCreateSupportRoom("alice")
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, second.ID)
}

func Test_GetOrCreateSupportRoom_Concurrent_Calls_Return_Same_Room(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	const callers = 10
	results := make(chan domain.RoomID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room, _, err := repository.GetOrCreateSupportRoom("alice")
			require.NoError(t, err)
			results <- room.ID
		}()
	}
	wg.Wait()
	close(results)

	ids := make(map[domain.RoomID]struct{})
	for id := range results {
		ids[id] = struct{}{}
	}
	req.Len(ids, 1)
}

func Test_Room_Creation_Writes_Member_Participant(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	room, _, err := repository.GetOrCreateSupportRoom("alice")
	req.NoError(err)

	participants, err := repository.GetParticipants(room.ID)
	req.NoError(err)
	req.Len(participants, 1)
	req.Equal("alice", participants[0].UserID)
	req.Equal(domain.RoleMember, participants[0].Role)
}

func Test_GetRoom_Unknown_Room(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	_, err := repository.GetRoom("nope")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func Test_ListSupportRooms_Returns_Every_Room(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	for _, userID := range []string{"alice", "bob", "clara"} {
		_, _, err := repository.GetOrCreateSupportRoom(userID)
		req.NoError(err)
	}

	rooms, err := repository.ListSupportRooms()
	req.NoError(err)
	req.Len(rooms, 3)
}
