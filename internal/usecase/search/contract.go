package search

import (
	"context"

	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	domsearch "github.com/kailas-cloud/careatlas/internal/domain/search"
	"github.com/kailas-cloud/careatlas/internal/repository/placescache"
	"github.com/kailas-cloud/careatlas/internal/transport/overpass"
	"github.com/kailas-cloud/careatlas/internal/usecase/places"
)

// Batch is what one adapter returns for a query.
type Batch struct {
	Records  []raw.Record
	CacheHit bool    // served without a billable upstream call
	Cost     float64 // estimated USD of upstream calls made for the batch
}

// Adapter fetches raw records from one source.
type Adapter interface {
	Source() raw.Source
	Lookup(ctx context.Context, q *domsearch.Query) (Batch, error)
}

// PlacesSearcher performs cache-through remote places lookups. The hybrid
// search records its own analytics event, so lookups must not emit one.
type PlacesSearcher interface {
	Lookup(ctx context.Context, req lookup.Request) (places.Response, error)
}

// RecentCache lists cached remote responses near an area.
type RecentCache interface {
	Recent(ctx context.Context, area placescache.Area, limit int) []placescache.Entry
}

// GeoSearcher queries the public geodata API.
type GeoSearcher interface {
	Search(ctx context.Context, center geo.Point, radiusMeters float64, category overpass.Category) ([]raw.GeoElement, error)
}

// Geocoder resolves free-text locations.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (overpass.Place, error)
}

// CatalogSearcher filters the local static catalog.
type CatalogSearcher interface {
	Search(query, category string) []raw.CatalogEntry
}

// EventSink accepts analytics events. Implementations must not block.
type EventSink interface {
	Record(ctx context.Context, e analytics.Event) error
}
