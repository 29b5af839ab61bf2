//go:generate go run go.uber.org/mock/mockgen -source=directory.go -destination=../mocks/mock_directory.go -package=mocks
// Package identity resolves user IDs to display information.
//
// The directory is an external collaborator: the chat core consumes it for
// rendering only and never for authorization decisions.
package identity

import (
	"context"
	"strings"
	"sync"
)

type DisplayIdentity struct {
	FirstName string
	LastName  string
	IsStaff   bool
}

func (d DisplayIdentity) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

type Directory interface {
	ResolveIdentity(ctx context.Context, userID string) (DisplayIdentity, error)
}

// StaticDirectory is an in-memory Directory used in development and tests.
// Unknown users resolve to their raw ID so rendering never fails on a
// missing directory entry.
type StaticDirectory struct {
	mu      sync.RWMutex
	entries map[string]DisplayIdentity
}

func NewStaticDirectory(entries map[string]DisplayIdentity) *StaticDirectory {
	if entries == nil {
		entries = make(map[string]DisplayIdentity)
	}
	return &StaticDirectory{entries: entries}
}

func (d *StaticDirectory) ResolveIdentity(_ context.Context, userID string) (DisplayIdentity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if identity, ok := d.entries[userID]; ok {
		return identity, nil
	}
	return DisplayIdentity{FirstName: userID}, nil
}

func (d *StaticDirectory) Add(userID string, identity DisplayIdentity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[userID] = identity
}
