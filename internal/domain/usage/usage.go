// Package usage models the per-provider, per-endpoint, per-day API usage ledger.
package usage

import (
	"math"
	"time"
)

// DateLayout is the ledger day format.
const DateLayout = "2006-01-02"

// microsPerDollar converts USD to the integer unit stored by the ledger.
const microsPerDollar = 1_000_000

// ToMicros converts a USD amount to micro-dollars, rounding to nearest.
func ToMicros(usd float64) int64 { return int64(math.Round(usd * microsPerDollar)) }

// FromMicros converts micro-dollars back to USD.
func FromMicros(m int64) float64 { return float64(m) / microsPerDollar }

// Day formats t as a ledger day in UTC.
func Day(t time.Time) string { return t.UTC().Format(DateLayout) }

// Entry is the usage of one endpoint on one day.
type Entry struct {
	provider     string
	endpoint     string
	date         string
	requestCount int64
	costMicros   int64
}

// NewEntry creates a ledger entry.
func NewEntry(provider, endpoint, date string, requests, costMicros int64) Entry {
	return Entry{
		provider:     provider,
		endpoint:     endpoint,
		date:         date,
		requestCount: requests,
		costMicros:   costMicros,
	}
}

// Provider returns the API provider name.
func (e *Entry) Provider() string { return e.provider }

// Endpoint returns the endpoint name.
func (e *Entry) Endpoint() string { return e.endpoint }

// Date returns the ledger day (YYYY-MM-DD).
func (e *Entry) Date() string { return e.date }

// RequestCount returns the number of billable calls.
func (e *Entry) RequestCount() int64 { return e.requestCount }

// EstimatedCost returns the estimated cost in USD.
func (e *Entry) EstimatedCost() float64 { return FromMicros(e.costMicros) }

// Report aggregates a day of usage for one provider.
type Report struct {
	provider string
	date     string
	entries  []Entry
}

// NewReport creates a report.
func NewReport(provider, date string, entries []Entry) Report {
	return Report{provider: provider, date: date, entries: entries}
}

// Provider returns the API provider name.
func (r *Report) Provider() string { return r.provider }

// Date returns the ledger day.
func (r *Report) Date() string { return r.date }

// Entries returns per-endpoint entries.
func (r *Report) Entries() []Entry { return r.entries }

// TotalRequests sums request counts across endpoints.
func (r *Report) TotalRequests() int64 {
	var n int64
	for i := range r.entries {
		n += r.entries[i].requestCount
	}
	return n
}

// TotalCost sums estimated cost across endpoints in USD.
func (r *Report) TotalCost() float64 {
	var m int64
	for i := range r.entries {
		m += r.entries[i].costMicros
	}
	return FromMicros(m)
}
