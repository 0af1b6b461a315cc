// Package store defines the persistence collaborator for the ledger engine:
// a small key-value contract mirroring the browser local storage the UI
// started with. Implementations include in-memory (for testing), SQLite
// (embedded), PostgreSQL, and a Redis read-through cache in front of any of
// them.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("store: key not found")

// Store is the persistence interface. Writes are last-write-wins; there is
// no transactional coupling between keys.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases underlying resources.
	Close() error
}
