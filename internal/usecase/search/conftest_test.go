package search

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	domsearch "github.com/kailas-cloud/careatlas/internal/domain/search"
	"github.com/kailas-cloud/careatlas/internal/repository/placescache"
	"github.com/kailas-cloud/careatlas/internal/transport/overpass"
	"github.com/kailas-cloud/careatlas/internal/usecase/places"
)

// --- Adapter mocks ---

type funcAdapter struct {
	src    raw.Source
	lookup func(ctx context.Context, q *domsearch.Query) (Batch, error)
}

func (a *funcAdapter) Source() raw.Source { return a.src }

func (a *funcAdapter) Lookup(ctx context.Context, q *domsearch.Query) (Batch, error) {
	return a.lookup(ctx, q)
}

func staticAdapter(src raw.Source, recs ...raw.Record) *funcAdapter {
	return &funcAdapter{src: src, lookup: func(context.Context, *domsearch.Query) (Batch, error) {
		return Batch{Records: recs}, nil
	}}
}

func failingAdapter(src raw.Source, err error) *funcAdapter {
	return &funcAdapter{src: src, lookup: func(context.Context, *domsearch.Query) (Batch, error) {
		return Batch{}, err
	}}
}

func blockingAdapter(src raw.Source) *funcAdapter {
	return &funcAdapter{src: src, lookup: func(ctx context.Context, _ *domsearch.Query) (Batch, error) {
		<-ctx.Done()
		return Batch{}, ctx.Err()
	}}
}

// --- Collaborator mocks ---

type mockPlaces struct {
	resp places.Response
	err  error
	reqs []lookup.Request
}

func (m *mockPlaces) Lookup(_ context.Context, req lookup.Request) (places.Response, error) {
	m.reqs = append(m.reqs, req)
	return m.resp, m.err
}

type mockRecent struct {
	entries []placescache.Entry
	area    placescache.Area
	limit   int
}

func (m *mockRecent) Recent(_ context.Context, area placescache.Area, limit int) []placescache.Entry {
	m.area, m.limit = area, limit
	return m.entries
}

type mockGeo struct {
	elements []raw.GeoElement
	err      error
	block    bool
	started  chan struct{}
	category overpass.Category
}

func (m *mockGeo) Search(ctx context.Context, _ geo.Point, _ float64, cat overpass.Category) ([]raw.GeoElement, error) {
	m.category = cat
	if m.block {
		if m.started != nil {
			m.started <- struct{}{}
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.elements, m.err
}

type mockGeocoder struct {
	place overpass.Place
	err   error
	calls int
}

func (m *mockGeocoder) Geocode(_ context.Context, _ string) (overpass.Place, error) {
	m.calls++
	return m.place, m.err
}

type mockCatalog struct {
	entries []raw.CatalogEntry
}

func (m *mockCatalog) Search(_, _ string) []raw.CatalogEntry { return m.entries }

type mockSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (m *mockSink) Record(_ context.Context, e analytics.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// --- Fixtures ---

func f64(v float64) *float64 { return &v }

func newQuery(p domsearch.Params) domsearch.Query {
	q, err := domsearch.New(p, domsearch.Limits{})
	if err != nil {
		panic(err)
	}
	return q
}

func remotePlace(id, name, addr string) raw.RemotePlace {
	return raw.RemotePlace{
		PlaceID:          id,
		Name:             name,
		FormattedAddress: addr,
		Types:            []string{"health"},
	}
}

func geoElement(id int64, name string, center *geo.Point) raw.GeoElement {
	return raw.GeoElement{
		Type:     "node",
		ID:       id,
		Center:   center,
		Tags:     map[string]string{"name": name, "addr:city": "Austin"},
		Category: string(overpass.Therapists),
	}
}

func catalogProvider(id, name, city, state string) raw.CatalogEntry {
	return raw.CatalogEntry{
		ID:       id,
		Kind:     raw.KindProvider,
		Name:     name,
		Category: "Therapy Centers",
		City:     city,
		State:    state,
		Rating:   f64(4.5),
		Verified: true,
	}
}

const testTimeout = 100 * time.Millisecond
