// Package placescache persists raw remote places responses in the key-value
// store and indexes their search centers for nearby lookups.
package placescache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/db"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
)

const keySegment = "places:"

// store is the consumer interface for the places cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
}

// Entry is one cached upstream response.
type Entry struct {
	Key       string             `json:"-"`
	Params    lookup.CacheParams `json:"params"`
	Results   []raw.RemotePlace  `json:"results"`
	Source    string             `json:"source"`
	CreatedAt time.Time          `json:"createdAt"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Cache stores places responses keyed by request identity.
type Cache struct {
	store      store
	prefix     string
	source     string
	index      *index
	now        func() time.Time
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a places cache. cacheTotal is a counter vec with label "result"
// ("hit"/"miss") and may be nil.
func New(s store, keyPrefix, source string, cacheTotal *prometheus.CounterVec, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:      s,
		prefix:     keyPrefix + keySegment,
		source:     source,
		index:      newIndex(),
		now:        time.Now,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the storage key: <prefix>places:<type>_<sha256 of the params JSON>.
func (c *Cache) Key(p lookup.CacheParams) string {
	data, _ := json.Marshal(p) //nolint:errchkjson // plain struct, cannot fail
	h := sha256.Sum256(data)
	return c.prefix + string(p.Type) + "_" + hex.EncodeToString(h[:])
}

// Get returns the unexpired entry for p. Store failures and corrupt entries
// are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, p lookup.CacheParams) (Entry, bool) {
	key := c.Key(p)
	entry, ok := c.load(ctx, key)
	if ok {
		c.incCache("hit")
	} else {
		c.incCache("miss")
	}
	return entry, ok
}

// Put stores results for p with the given TTL and indexes the entry center.
func (c *Cache) Put(ctx context.Context, p lookup.CacheParams, results []raw.RemotePlace, ttl time.Duration) error {
	now := c.now().UTC()
	entry := Entry{
		Key:       c.Key(p),
		Params:    p,
		Results:   results,
		Source:    c.source,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if entry.Results == nil {
		entry.Results = []raw.RemotePlace{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := c.store.SetWithTTL(ctx, entry.Key, data, ttl); err != nil {
		return fmt.Errorf("places cache SET %s: %w", entry.Key, err)
	}

	c.index.add(&entry)
	return nil
}

// Recent returns up to limit unexpired entries whose search center falls in
// the bounding box of the area, newest first. An area without a center
// matches every entry.
func (c *Cache) Recent(ctx context.Context, q Area, limit int) []Entry {
	now := c.now()
	keys := c.index.search(q, now, limit)

	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		entry, ok := c.load(ctx, key)
		if !ok {
			c.index.remove(key)
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Warm indexes every unexpired entry found in the store. Returns the number of
// indexed entries.
func (c *Cache) Warm(ctx context.Context) (int, error) {
	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		return 0, fmt.Errorf("places cache SCAN: %w", err)
	}

	n := 0
	for _, key := range keys {
		entry, ok := c.load(ctx, key)
		if !ok {
			continue
		}
		c.index.add(&entry)
		n++
	}
	return n, nil
}

// Indexed returns the number of entries currently in the nearby index.
func (c *Cache) Indexed() int { return c.index.len() }

func (c *Cache) load(ctx context.Context, key string) (Entry, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("places cache read failed", zap.String("key", key), zap.Error(err))
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("places cache entry corrupt, evicting", zap.String("key", key), zap.Error(err))
		if err := c.store.Del(ctx, key); err != nil {
			c.logger.Warn("places cache evict failed", zap.String("key", key), zap.Error(err))
		}
		return Entry{}, false
	}
	if entry.Expired(c.now()) {
		return Entry{}, false
	}
	entry.Key = key
	return entry, true
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
