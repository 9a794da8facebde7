// Package analytics defines the search analytics event appended per search.
package analytics

import (
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/careatlas/internal/domain/geo"
)

// Search types recorded with each event.
const (
	SearchTypeHybrid = "hybrid"
	searchTypePlaces = "places:"
)

// PlacesSearchType returns the search type label of a direct places lookup.
func PlacesSearchType(kind string) string { return searchTypePlaces + kind }

// Event is one append-only analytics row.
type Event struct {
	ID             uuid.UUID
	Query          string
	Location       *geo.Point
	Category       string
	SearchType     string
	CacheHit       bool
	ResponseTimeMS int64
	ResultCount    int
	EstimatedCost  float64
	UserAgent      string
	CreatedAt      time.Time
}

// NewEvent stamps a fresh id and creation time on an event.
func NewEvent(searchType, query string, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		SearchType: searchType,
		Query:      query,
		CreatedAt:  now.UTC(),
	}
}
