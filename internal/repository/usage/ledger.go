// Package usage stores the per-day API usage ledger as Redis counters.
package usage

import (
	"context"
	"fmt"
	"time"

	domusage "github.com/kailas-cloud/careatlas/internal/domain/usage"
)

// store is the consumer interface for ledger operations (ISP).
type store interface {
	IncrExpireNX(ctx context.Context, key string, val int64, ttl time.Duration) error
	Counters(ctx context.Context, keys ...string) ([]int64, error)
}

// Ledger implements the usage ledger on top of pipelined INCRBY + EXPIRE NX.
type Ledger struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a ledger. ttl bounds how long a day of counters is kept.
func New(s store, keyPrefix string, ttl time.Duration) *Ledger {
	return &Ledger{
		store:  s,
		prefix: keyPrefix + "usage:",
		ttl:    ttl,
	}
}

// Record counts one billable call of endpoint on date with its cost in micro-dollars.
func (l *Ledger) Record(ctx context.Context, provider, endpoint, date string, costMicros int64) error {
	if err := l.incr(ctx, l.requestsKey(provider, endpoint, date), 1); err != nil {
		return err
	}
	if costMicros <= 0 {
		return nil
	}
	return l.incr(ctx, l.costKey(provider, endpoint, date), costMicros)
}

// Entry returns the counters of one endpoint on date. Missing counters read as zero.
func (l *Ledger) Entry(ctx context.Context, provider, endpoint, date string) (domusage.Entry, error) {
	vals, err := l.store.Counters(ctx, l.requestsKey(provider, endpoint, date), l.costKey(provider, endpoint, date))
	if err != nil {
		return domusage.Entry{}, fmt.Errorf("ledger read %s/%s/%s: %w", provider, endpoint, date, err)
	}
	return domusage.NewEntry(provider, endpoint, date, vals[0], vals[1]), nil
}

// NX keeps the first expiry: repeated writes do not extend the day's lifetime.
func (l *Ledger) incr(ctx context.Context, key string, val int64) error {
	if err := l.store.IncrExpireNX(ctx, key, val, l.ttl); err != nil {
		return fmt.Errorf("ledger incr %s: %w", key, err)
	}
	return nil
}

// Keys follow careatlas:usage:{provider}:{endpoint}:{date}:{counter}.
func (l *Ledger) requestsKey(provider, endpoint, date string) string {
	return l.prefix + provider + ":" + endpoint + ":" + date + ":requests"
}

func (l *Ledger) costKey(provider, endpoint, date string) string {
	return l.prefix + provider + ":" + endpoint + ":" + date + ":cost_micros"
}
