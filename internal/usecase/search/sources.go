package search

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	"github.com/kailas-cloud/careatlas/internal/domain/place"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	domsearch "github.com/kailas-cloud/careatlas/internal/domain/search"
	"github.com/kailas-cloud/careatlas/internal/logger"
	"github.com/kailas-cloud/careatlas/internal/repository/placescache"
	"github.com/kailas-cloud/careatlas/internal/transport/overpass"
)

// DefaultNearbyCacheLimit caps the cached responses unioned into a remote lookup.
const DefaultNearbyCacheLimit = 10

// RemoteAdapter serves the remote places source: a cache-through lookup for the
// query plus recent cached responses around the location.
type RemoteAdapter struct {
	places PlacesSearcher
	cache  RecentCache
	limit  int
	logger *zap.Logger
}

// NewRemoteAdapter creates the remote places adapter. limit <= 0 uses DefaultNearbyCacheLimit.
func NewRemoteAdapter(places PlacesSearcher, cache RecentCache, limit int, logger *zap.Logger) *RemoteAdapter {
	if limit <= 0 {
		limit = DefaultNearbyCacheLimit
	}
	return &RemoteAdapter{places: places, cache: cache, limit: limit, logger: logger}
}

// Source implements Adapter.
func (a *RemoteAdapter) Source() raw.Source { return raw.RemotePlaces }

// Lookup implements Adapter. Without an API key only cached responses contribute.
func (a *RemoteAdapter) Lookup(ctx context.Context, q *domsearch.Query) (Batch, error) {
	log := logger.FromContextOr(ctx, a.logger)
	seen := make(map[string]struct{})
	var out []raw.Record
	cacheHit := true
	var cost float64

	add := func(p *raw.RemotePlace) {
		if !matchesCategory(p, q.Category()) {
			return
		}
		if _, dup := seen[p.PlaceID]; dup {
			return
		}
		seen[p.PlaceID] = struct{}{}
		out = append(out, *p)
	}

	var liveErr error
	if req, ok := remoteRequest(q); ok {
		resp, err := a.places.Lookup(ctx, req)
		switch {
		case err == nil:
			cacheHit = resp.CacheHit
			cost = resp.EstimatedCost
			for i := range resp.Places {
				add(&resp.Places[i])
			}
		case errors.Is(err, domain.ErrMissingCredentials):
			log.Debug("places api key not set, using cache only")
		default:
			liveErr = err
		}
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}

	area := placescache.Area{Center: q.Location(), RadiusMeters: q.RadiusMeters()}
	for _, entry := range a.cache.Recent(ctx, area, a.limit) {
		for i := range entry.Results {
			if matchesText(&entry.Results[i], q.Text()) {
				add(&entry.Results[i])
			}
		}
	}

	if liveErr != nil && len(out) == 0 {
		return Batch{}, liveErr
	}
	if liveErr != nil {
		log.Warn("live places lookup failed, serving cached results", zap.Error(liveErr))
	}
	return Batch{Records: out, CacheHit: cacheHit, Cost: cost}, nil
}

// remoteRequest maps a hybrid query to a places lookup: text search when there
// is a query, nearby search when only a location is known.
func remoteRequest(q *domsearch.Query) (lookup.Request, bool) {
	req := lookup.Request{
		Query:        q.Text(),
		Location:     q.Location(),
		RadiusMeters: q.RadiusMeters(),
		Category:     q.Category(),
	}
	switch {
	case q.Text() != "":
		req.Kind = lookup.TextSearch
	case q.HasLocation():
		req.Kind = lookup.NearbySearch
	default:
		return lookup.Request{}, false
	}
	return req, true
}

func matchesText(p *raw.RemotePlace, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.FormattedAddress), q) ||
		strings.Contains(strings.ToLower(p.Vicinity), q) {
		return true
	}
	for _, t := range p.Types {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(place.CategoryForTypes(p.Types)), q)
}

func matchesCategory(p *raw.RemotePlace, category string) bool {
	if category == "" {
		return true
	}
	return strings.Contains(
		strings.ToLower(place.CategoryForTypes(p.Types)),
		strings.ToLower(category),
	)
}

// GeodataAdapter serves the public geodata source. Calls of the same session
// supersede each other.
type GeodataAdapter struct {
	geo      GeoSearcher
	sessions *sessions
}

// NewGeodataAdapter creates the public geodata adapter.
func NewGeodataAdapter(g GeoSearcher) *GeodataAdapter {
	return &GeodataAdapter{geo: g, sessions: newSessions()}
}

// Source implements Adapter.
func (a *GeodataAdapter) Source() raw.Source { return raw.PublicGeodata }

// Lookup implements Adapter. Queries without a location are skipped.
func (a *GeodataAdapter) Lookup(ctx context.Context, q *domsearch.Query) (Batch, error) {
	if !q.HasLocation() {
		return Batch{}, ErrSourceSkipped
	}
	elements, err := a.Nearby(ctx, q.SessionID(), *q.Location(), q.RadiusMeters(), q.Category())
	if err != nil {
		return Batch{}, err
	}
	out := make([]raw.Record, len(elements))
	for i := range elements {
		out[i] = elements[i]
	}
	return Batch{Records: out}, nil
}

// Nearby runs one geodata search for the free-text category, cancelling the
// previous in-flight search of sessionID. A superseded call returns context.Canceled.
func (a *GeodataAdapter) Nearby(ctx context.Context, sessionID string, center geo.Point, radiusMeters float64, category string) ([]raw.GeoElement, error) {
	ctx, done := a.sessions.begin(ctx, sessionID)
	defer done()

	elements, err := a.geo.Search(ctx, center, radiusMeters, overpass.ResolveCategory(category))
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(context.Cause(ctx), ErrSuperseded) {
		return nil, ctxErr
	}
	return elements, err
}

// LocalAdapter serves the local static catalog.
type LocalAdapter struct {
	catalog CatalogSearcher
}

// NewLocalAdapter creates the local static adapter.
func NewLocalAdapter(c CatalogSearcher) *LocalAdapter {
	return &LocalAdapter{catalog: c}
}

// Source implements Adapter.
func (a *LocalAdapter) Source() raw.Source { return raw.LocalStatic }

// Lookup implements Adapter.
func (a *LocalAdapter) Lookup(_ context.Context, q *domsearch.Query) (Batch, error) {
	entries := a.catalog.Search(q.Text(), q.Category())
	out := make([]raw.Record, len(entries))
	for i := range entries {
		out[i] = entries[i]
	}
	return Batch{Records: out}, nil
}
