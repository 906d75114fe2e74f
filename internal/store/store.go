// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Repository persists opaque client-state documents under fixed storage keys.
// It plays the role browser local storage plays for a web client: one JSON
// value per key, last write wins.
type Repository interface {
	// Get returns the value stored under key, or nil with no error when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing storage.
	Close() error
}
