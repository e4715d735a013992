package db

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has never been written or was deleted.
var ErrNotFound = errors.New("key not found")

// Storage is the durable client-side state: a handful of string values keyed by fixed names.
// Last write wins; there is no versioning.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Watcher is implemented by backends that can report writes made by other processes.
// The channel carries the names of keys that changed and is closed when ctx ends.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// GetOr returns the stored value for key, or def when it is absent.
func GetOr(ctx context.Context, s Storage, key, def string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return v, nil
}
