//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"support-chat/domain"
	"support-chat/errors"
)

type IMessageRepository interface {
	Append(roomID domain.RoomID, userID, content string, at time.Time) (domain.Message, error)
	List(roomID domain.RoomID, cursor *string, limit int) ([]domain.Message, *string, error)
	CountByAuthor(roomID domain.RoomID, authorID string) (int, error)
	Last(roomID domain.RoomID) (*domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
	mu  *sync.Mutex
	// tail holds the CreatedAt of each room's newest committed message.
	tail map[domain.RoomID]time.Time
}

// NewMessageRepository reserves a monotonic sequence for message IDs.
// Release the repository with Close before closing the database.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:msg"), 100)
	if err != nil {
		return MessageRepository{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return MessageRepository{
		db:   db,
		seq:  seq,
		log:  log,
		mu:   &sync.Mutex{},
		tail: make(map[domain.RoomID]time.Time),
	}, nil
}

func (m MessageRepository) Close() error {
	return m.seq.Release()
}

// DiskMessage is the storage representation of a message.
type DiskMessage struct {
	ID        uint64    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Append persists a message in BadgerDB.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{id_padded}" to:
//  1. Ensure (created_at, id) ordering using zero padding (lexicographical order).
//  2. Disambiguate two messages appended at the same nanosecond through the
//     monotonic sequence ID.
//
// A forward prefix scan therefore yields the room's log in append order.
//
// The repository owns tail placement: `at` is a lower bound, not the final
// CreatedAt. Key assignment and commit are serialized, and a timestamp older
// than the room's newest committed message is clamped forward to it, with
// the sequence ID breaking the tie. Every commit is therefore a tail append:
// a key can never sort before a cursor position a reader already paged past,
// which would hide the message from that reader forever.
//
// The room's UpdatedAt is bumped in the same transaction, so a committed
// message and its room bump are one atomic unit. Room existence is the
// caller's check; rooms are never deleted.
func (m MessageRepository) Append(roomID domain.RoomID, userID, content string, at time.Time) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	last, ok := m.tail[roomID]
	if !ok {
		// First append since startup: recover the tail from the store.
		newest, err := m.Last(roomID)
		if err != nil {
			return domain.Message{}, err
		}
		if newest != nil {
			last = newest.CreatedAt
		}
	}
	if at.Before(last) {
		at = last
	}

	id, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	message := domain.Message{
		ID:        domain.MessageID(id),
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		Kind:      domain.MessageKindText,
		CreatedAt: at,
	}
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(roomID, at, id), bytes); err != nil {
			return err
		}
		return touchRoom(txn, roomID, at)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	m.tail[roomID] = at
	return message, nil
}

// touchRoom bumps the room's UpdatedAt inside the append transaction. A
// missing room row is skipped rather than rejected: existence belongs to
// the caller, and a failed bump must never strand a committed message.
func touchRoom(txn *badger.Txn, roomID domain.RoomID, at time.Time) error {
	item, err := txn.Get(roomKey(roomID))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	var diskRoom DiskRoom
	if err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &diskRoom)
	}); err != nil {
		return err
	}
	diskRoom.UpdatedAt = at
	bytes, err := json.Marshal(diskRoom)
	if err != nil {
		return err
	}
	return txn.Set(roomKey(roomID), bytes)
}

func messageKey(roomID domain.RoomID, at time.Time, id uint64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%020d", roomID, at.UnixNano(), id))
}

// List retrieves messages for a room ascending by (created_at, id) using a
// prefix scan. The returned cursor is the key remainder of the last message:
// a later call seeks to it and skips one entry. Append only ever writes at
// the tail, so pagination resumes with no gap and no duplicate under
// concurrent appends.
func (m MessageRepository) List(roomID domain.RoomID, cursor *string, limit int) ([]domain.Message, *string, error) {
	var diskMessages []DiskMessage
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", roomID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seekKey := prefix
		if cursor != nil {
			seekKey = append([]byte(prefixStr), []byte(*cursor)...)
		}
		it.Seek(seekKey)

		// The cursor points at the last message already delivered.
		if cursor != nil && it.ValidForPrefix(prefix) &&
			string(it.Item().Key()[prefixLen:]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(diskMessages) == limit {
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			var diskMessage DiskMessage
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &diskMessage)
			})
			if err != nil {
				return err
			}
			diskMessages = append(diskMessages, diskMessage)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	if len(diskMessages) == 0 {
		return nil, cursor, nil
	}
	messages := lo.Map(diskMessages, func(item DiskMessage, _ int) domain.Message {
		return toMessage(item)
	})
	return messages, &lastKey, nil
}

// CountByAuthor counts messages in the room written by authorID. The admin
// panel uses it with the room creator to derive its unread counter.
func (m MessageRepository) CountByAuthor(roomID domain.RoomID, authorID string) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", roomID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var diskMessage DiskMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &diskMessage)
			})
			if err != nil {
				return err
			}
			if diskMessage.UserID == authorID {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return count, nil
}

// Last returns the newest message of the room, or nil when the log is empty.
func (m MessageRepository) Last(roomID domain.RoomID) (*domain.Message, error) {
	var diskMessage *DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", roomID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the highest possible key of the prefix, then step back.
		it.Seek(append([]byte(prefixStr), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		var dm DiskMessage
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &dm)
		})
		if err != nil {
			return err
		}
		diskMessage = &dm
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	if diskMessage == nil {
		return nil, nil
	}
	message := toMessage(*diskMessage)
	return &message, nil
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:        uint64(message.ID),
		RoomID:    string(message.RoomID),
		UserID:    message.UserID,
		Content:   message.Content,
		Kind:      message.Kind,
		CreatedAt: message.CreatedAt,
	}
}

func toMessage(diskMessage DiskMessage) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(diskMessage.ID),
		RoomID:    domain.RoomID(diskMessage.RoomID),
		UserID:    diskMessage.UserID,
		Content:   diskMessage.Content,
		Kind:      diskMessage.Kind,
		CreatedAt: diskMessage.CreatedAt,
	}
}
