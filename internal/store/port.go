// Package store provides the durable key/value storage the chat engine uses
// to survive restarts, plus transcript export documents.
package store

//go:generate mockgen -source=port.go -destination=mock_store.go -package=store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no value is stored under the key.
var ErrNotFound = errors.New("key not found")

// Store is a durable key/value store scoped to this application.
type Store interface {
	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error

	// Load returns the value stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Clear removes key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}
