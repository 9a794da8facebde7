package places

import (
	"context"
	"time"

	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	"github.com/kailas-cloud/careatlas/internal/repository/placescache"
)

// Fetcher calls the remote places API.
type Fetcher interface {
	Configured() bool
	Fetch(ctx context.Context, req lookup.Request) ([]raw.RemotePlace, error)
}

// Cache stores raw upstream responses.
type Cache interface {
	Get(ctx context.Context, p lookup.CacheParams) (placescache.Entry, bool)
	Put(ctx context.Context, p lookup.CacheParams, results []raw.RemotePlace, ttl time.Duration) error
}

// Ledger counts billable upstream calls.
type Ledger interface {
	Record(ctx context.Context, provider, endpoint, date string, costMicros int64) error
}

// EventSink accepts analytics events. Implementations must not block.
type EventSink interface {
	Record(ctx context.Context, e analytics.Event) error
}
