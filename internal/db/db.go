package db

import (
	"context"
	"time"
)

// Store is the storage facade behind the places cache and the usage ledger.
// Consumers depend on the narrow sub-interfaces (ISP).
type Store interface {
	Pinger
	KVStore
	KeyScanner
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides the blob and counter operations of the cache and ledger.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrExpireNX(ctx context.Context, key string, val int64, ttl time.Duration) error
	Counters(ctx context.Context, keys ...string) ([]int64, error)
}

// KeyScanner enumerates and removes keys.
type KeyScanner interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
}
