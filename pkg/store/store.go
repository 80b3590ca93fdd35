package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("store: key not found")
)

// Store is a durable key-value interface with small-set support. Values are
// JSON-encoded on write and decoded into dest on read, so Redis and the
// in-memory adapter behave identically.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	AddMember(ctx context.Context, set, member string) error
	RemoveMember(ctx context.Context, set, member string) error
	Members(ctx context.Context, set string) ([]string, error)

	// TryLock acquires a best-effort mutual-exclusion key (SETNX semantics).
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error

	Close() error
}
