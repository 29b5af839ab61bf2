// Command viewer opens the chat database read-only and prints every support
// room with its message count and latest entry. It can run next to the live
// service thanks to the lock guard bypass.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"support-chat/repositories"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if the service holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	rows, err := collectRows(db)
	if err != nil {
		log.Fatalf("Failed to read rooms: %v", err)
	}

	color.Cyan.Printf("Support rooms (%d)\n", len(rows))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Owner", "Messages", "Updated", "Last message"})
	table.SetBorder(false)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

func collectRows(db *badger.DB) ([][]string, error) {
	var rows [][]string
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("room:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var room repositories.DiskRoom
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &room)
			}); err != nil {
				return err
			}
			count, last, err := roomMessages(txn, room.ID)
			if err != nil {
				return err
			}
			rows = append(rows, []string{
				shorten(room.ID, 8),
				room.CreatedBy,
				fmt.Sprintf("%d", count),
				room.UpdatedAt.Format("2006-01-02 15:04:05"),
				shorten(last, 40),
			})
		}
		return nil
	})
	return rows, err
}

func roomMessages(txn *badger.Txn, roomID string) (int, string, error) {
	prefix := []byte("msg:" + roomID + ":")
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	count := 0
	var last string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
		var message repositories.DiskMessage
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		}); err != nil {
			return 0, "", err
		}
		last = message.Content
	}
	return count, last, nil
}

func shorten(str string, max int) string {
	runes := []rune(str)
	if len(runes) <= max {
		return str
	}
	return string(runes[:max])
}
