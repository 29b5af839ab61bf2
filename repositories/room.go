//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"support-chat/domain"
	"support-chat/errors"
)

type IRoomRepository interface {
	GetOrCreateSupportRoom(userID string) (domain.Room, bool, error)
	GetRoom(roomID domain.RoomID) (domain.Room, error)
	ListSupportRooms() ([]domain.Room, error)
	GetParticipants(roomID domain.RoomID) ([]domain.Participant, error)
}

type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) RoomRepository {
	return RoomRepository{db: db, log: log}
}

// DiskRoom is the storage representation of a room.
type DiskRoom struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"created_by"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DiskParticipant struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Key layout:
//
//	room:{room_id}                -> DiskRoom
//	roomowner:{user_id}           -> room_id
//	participant:{room_id}:{user_id} -> DiskParticipant
//
// The roomowner entry is the uniqueness constraint on (created_by, type):
// there is only one room type, so one key per owner is the whole invariant.
func roomKey(id domain.RoomID) []byte { return []byte("room:" + id) }
func ownerKey(userID string) []byte   { return []byte("roomowner:" + userID) }
func participantKey(id domain.RoomID, userID string) []byte {
	return []byte(fmt.Sprintf("participant:%s:%s", id, userID))
}

// GetOrCreateSupportRoom returns the single support room of userID, creating
// it on first call. It is idempotent under concurrent calls from the same
// user (two tabs opening the chat at once): creation happens in one Badger
// transaction guarded by the roomowner key, and a commit conflict means the
// other tab won, so we re-read and return the winner's room.
// The creator's participant row is written in the same transaction: there is
// never a room without its member.
func (r RoomRepository) GetOrCreateSupportRoom(userID string) (domain.Room, bool, error) {
	for {
		if room, err := r.findByOwner(userID); err == nil {
			return room, false, nil
		} else if err != badger.ErrKeyNotFound {
			return domain.Room{}, false, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
		}

		room := domain.NewSupportRoom(userID, time.Now().UTC())
		err := r.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(ownerKey(userID)); err == nil {
				return errors.ErrRoomConflict
			} else if err != badger.ErrKeyNotFound {
				return err
			}
			roomBytes, err := json.Marshal(fromRoom(room))
			if err != nil {
				return err
			}
			participantBytes, err := json.Marshal(DiskParticipant{
				RoomID: string(room.ID),
				UserID: userID,
				Role:   domain.RoleMember,
			})
			if err != nil {
				return err
			}
			if err = txn.Set(ownerKey(userID), []byte(room.ID)); err != nil {
				return err
			}
			if err = txn.Set(roomKey(room.ID), roomBytes); err != nil {
				return err
			}
			return txn.Set(participantKey(room.ID, userID), participantBytes)
		})
		switch err {
		case nil:
			return room, true, nil
		case errors.ErrRoomConflict, badger.ErrConflict:
			// Another call created the room first: loop and return the winner.
			r.log.Debug("Concurrent room creation lost, re-reading", "user_id", userID)
			continue
		default:
			return domain.Room{}, false, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
		}
	}
}

func (r RoomRepository) findByOwner(userID string) (domain.Room, error) {
	var roomID []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(ownerKey(userID))
		if err != nil {
			return err
		}
		roomID, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return domain.Room{}, err
	}
	return r.GetRoom(domain.RoomID(roomID))
}

func (r RoomRepository) GetRoom(roomID domain.RoomID) (domain.Room, error) {
	var diskRoom DiskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &diskRoom)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return toRoom(diskRoom), nil
}

// ListSupportRooms scans every room. Staff are implicit participants of all
// support rooms, so the admin panel lists them all regardless of rows.
func (r RoomRepository) ListSupportRooms() ([]domain.Room, error) {
	var diskRooms []DiskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("room:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var diskRoom DiskRoom
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &diskRoom)
			})
			if err != nil {
				return err
			}
			diskRooms = append(diskRooms, diskRoom)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return lo.Map(diskRooms, func(item DiskRoom, _ int) domain.Room {
		return toRoom(item)
	}), nil
}

func (r RoomRepository) GetParticipants(roomID domain.RoomID) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("participant:" + roomID + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var diskParticipant DiskParticipant
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &diskParticipant)
			})
			if err != nil {
				return err
			}
			participants = append(participants, domain.Participant{
				RoomID: domain.RoomID(diskParticipant.RoomID),
				UserID: diskParticipant.UserID,
				Role:   diskParticipant.Role,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return participants, nil
}

func fromRoom(room domain.Room) DiskRoom {
	return DiskRoom{
		ID:        string(room.ID),
		CreatedBy: room.CreatedBy,
		Type:      room.Type,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func toRoom(diskRoom DiskRoom) domain.Room {
	return domain.Room{
		ID:        domain.RoomID(diskRoom.ID),
		CreatedBy: diskRoom.CreatedBy,
		Type:      diskRoom.Type,
		CreatedAt: diskRoom.CreatedAt,
		UpdatedAt: diskRoom.UpdatedAt,
	}
}
