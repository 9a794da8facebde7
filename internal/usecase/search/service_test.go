package search

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	domsearch "github.com/kailas-cloud/careatlas/internal/domain/search"
	"github.com/kailas-cloud/careatlas/internal/transport/overpass"
)

func newTestService(adapters []Adapter, geodata *GeodataAdapter, gc Geocoder, sink EventSink) *Service {
	d := NewDispatcher(testTimeout, zap.NewNop(), adapters...)
	return New(d, geodata, gc, sink, Config{}, zap.NewNop())
}

func TestSearch_MergesDedupsAndRanks(t *testing.T) {
	austin := &geo.Point{Lat: 30.27, Lng: -97.74}
	adapters := []Adapter{
		staticAdapter(raw.RemotePlaces,
			remotePlace("g1", "Bright Steps Therapy", "100 Main St, Austin"),
			remotePlace("g2", "Far Away Clinic", "Somewhere else"),
		),
		staticAdapter(raw.PublicGeodata, geoElement(7, "Speech Works", austin)),
		staticAdapter(raw.LocalStatic, catalogProvider("card-1", "Bright Steps Therapy", "Austin", "TX")),
	}
	sink := &mockSink{}
	svc := newTestService(adapters, nil, nil, sink)

	resp, err := svc.Search(context.Background(), Request{Params: domsearch.Params{Text: "therapy", Location: austin}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Sources != (SourceCounts{Google: 2, OSM: 1, Local: 1}) {
		t.Errorf("unexpected source counts %+v", resp.Sources)
	}
	if resp.SearchStrategy != StrategyHybrid {
		t.Errorf("expected hybrid strategy, got %q", resp.SearchStrategy)
	}
	if resp.TotalResults != len(resp.Results) {
		t.Errorf("totalResults %d != len(results) %d", resp.TotalResults, len(resp.Results))
	}
	for i := 1; i < len(resp.Results); i++ {
		if *resp.Results[i-1].RelevanceScore < *resp.Results[i].RelevanceScore {
			t.Fatalf("results not sorted by score at %d", i)
		}
	}
	if len(resp.SourceReports) != 3 {
		t.Errorf("expected 3 source reports, got %d", len(resp.SourceReports))
	}
	if len(sink.events) != 1 || sink.events[0].SearchType != analytics.SearchTypeHybrid {
		t.Errorf("expected one hybrid analytics event, got %+v", sink.events)
	}
}

func TestSearch_CollapsesCrossSourceDuplicates(t *testing.T) {
	adapters := []Adapter{
		staticAdapter(raw.RemotePlaces, raw.RemotePlace{PlaceID: "g1", Name: "CARD Austin", FormattedAddress: "Austin, TX"}),
		staticAdapter(raw.LocalStatic, catalogProvider("card-1", "CARD Austin", "Austin", "TX")),
	}
	svc := newTestService(adapters, nil, nil, nil)

	resp, err := svc.Search(context.Background(), Request{Params: domsearch.Params{Text: "card"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalResults != 1 {
		t.Fatalf("expected one surviving record, got %d", resp.TotalResults)
	}
	if resp.Results[0].Source != raw.RemotePlaces {
		t.Errorf("expected first-seen record to survive, got %s", resp.Results[0].Source)
	}
}

func TestSearch_FailingSourceDoesNotFailSearch(t *testing.T) {
	adapters := []Adapter{
		staticAdapter(raw.RemotePlaces, remotePlace("g1", "ABA Center", "Austin")),
		failingAdapter(raw.PublicGeodata, domain.NewUpstreamStatus("overpass", "504", "gateway timeout")),
		staticAdapter(raw.LocalStatic, catalogProvider("c1", "ABA Local", "Austin", "TX")),
	}
	svc := newTestService(adapters, nil, nil, nil)

	resp, err := svc.Search(context.Background(), Request{Params: domsearch.Params{
		Text:     "aba",
		Location: &geo.Point{Lat: 30, Lng: -97},
	}})
	if err != nil {
		t.Fatalf("source failure must not fail the search: %v", err)
	}
	if resp.TotalResults != 2 {
		t.Errorf("expected 2 results from healthy sources, got %d", resp.TotalResults)
	}
	report := resp.SourceReports[1]
	if report.Status != StatusError || report.Error != domain.ErrUpstreamStatus.Error() {
		t.Errorf("unexpected geodata report %+v", report)
	}
}

func TestSearch_EmptyQueryWithLocation(t *testing.T) {
	loc := &geo.Point{Lat: 30, Lng: -97}
	adapters := []Adapter{
		staticAdapter(raw.PublicGeodata, geoElement(1, "Speech Works", loc)),
		staticAdapter(raw.LocalStatic, catalogProvider("c1", "CARD", "Austin", "TX")),
	}
	svc := newTestService(adapters, nil, nil, nil)

	resp, err := svc.Search(context.Background(), Request{Params: domsearch.Params{Location: loc}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalResults != 2 {
		t.Fatalf("expected 2 results, got %d", resp.TotalResults)
	}
	for _, r := range resp.Results {
		if *r.RelevanceScore < 18 {
			t.Errorf("empty query must award every text term, %s scored %v", r.Name, *r.RelevanceScore)
		}
	}
}

func TestSearch_TruncatesToMaxResults(t *testing.T) {
	var recs []raw.Record
	for i, name := range []string{"A", "B", "C", "D", "E"} {
		recs = append(recs, catalogProvider(name, name, "City", string(rune('K'+i))))
	}
	svc := newTestService([]Adapter{staticAdapter(raw.LocalStatic, recs...)}, nil, nil, nil)

	resp, err := svc.Search(context.Background(), Request{Params: domsearch.Params{MaxResults: 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalResults != 3 || resp.Sources.Local != 5 {
		t.Errorf("expected 3 of 5, got total=%d local=%d", resp.TotalResults, resp.Sources.Local)
	}
}

func TestSearch_DropsNamelessRecords(t *testing.T) {
	adapters := []Adapter{staticAdapter(raw.RemotePlaces,
		remotePlace("g1", "  ", "Austin"),
		remotePlace("g2", "Named", "Austin"),
	)}
	svc := newTestService(adapters, nil, nil, nil)

	resp, _ := svc.Search(context.Background(), Request{})
	if resp.Sources.Google != 1 || resp.TotalResults != 1 {
		t.Errorf("expected nameless record dropped, got %+v", resp.Sources)
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	_, err := svc.Search(context.Background(), Request{Params: domsearch.Params{Location: &geo.Point{Lat: 95}}})
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSearch_GeolocationDenied(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	_, err := svc.Search(context.Background(), Request{LocationStatus: LocationDenied})
	if !errors.Is(err, domain.ErrGeolocationDenied) {
		t.Fatalf("expected ErrGeolocationDenied, got %v", err)
	}
}

func TestSearch_GeocodesLocationQuery(t *testing.T) {
	gc := &mockGeocoder{place: overpass.Place{Point: geo.Point{Lat: 40.71, Lng: -74.0}}}
	var seen *geo.Point
	probe := &funcAdapter{src: raw.PublicGeodata, lookup: func(_ context.Context, q *domsearch.Query) (Batch, error) {
		seen = q.Location()
		return Batch{}, nil
	}}
	svc := newTestService([]Adapter{probe}, nil, gc, nil)

	resp, err := svc.Search(context.Background(), Request{LocationQuery: "New York", LocationStatus: LocationDenied})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil || seen.Lat != 40.71 {
		t.Errorf("expected geocoded location passed to sources, got %v", seen)
	}
	if resp.Location == nil || *resp.Location != gc.place.Point {
		t.Errorf("expected resolved location in response, got %v", resp.Location)
	}
}

func TestSearch_GeocodeFailure(t *testing.T) {
	gc := &mockGeocoder{err: domain.ErrLocationNotFound}
	svc := newTestService(nil, nil, gc, nil)

	_, err := svc.Search(context.Background(), Request{LocationQuery: "Atlantis"})
	if !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestSearch_SkipsGeocodingWithCoordinates(t *testing.T) {
	gc := &mockGeocoder{}
	svc := newTestService(nil, nil, gc, nil)

	_, err := svc.Search(context.Background(), Request{
		Params:        domsearch.Params{Location: &geo.Point{Lat: 1, Lng: 1}},
		LocationQuery: "ignored",
	})
	if err != nil || gc.calls != 0 {
		t.Errorf("expected no geocoding, got err=%v calls=%d", err, gc.calls)
	}
}

func TestSearch_CacheHitReflectsRemoteSource(t *testing.T) {
	live := &funcAdapter{src: raw.RemotePlaces, lookup: func(context.Context, *domsearch.Query) (Batch, error) {
		return Batch{Records: []raw.Record{remotePlace("g", "G", "")}, CacheHit: false}, nil
	}}
	resp, _ := newTestService([]Adapter{live}, nil, nil, nil).Search(context.Background(), Request{})
	if resp.CacheHit {
		t.Error("live remote fetch must clear cacheHit")
	}

	cached := staticAdapter(raw.RemotePlaces)
	cached.lookup = func(context.Context, *domsearch.Query) (Batch, error) {
		return Batch{CacheHit: true}, nil
	}
	resp, _ = newTestService([]Adapter{cached}, nil, nil, nil).Search(context.Background(), Request{})
	if !resp.CacheHit {
		t.Error("cached remote lookup must report cacheHit")
	}
}

func TestSearch_CategoryFilterAppliesToEverySource(t *testing.T) {
	austin := &geo.Point{Lat: 30.27, Lng: -97.74}
	circle := geoElement(1, "Parent Circle", austin)
	circle.Category = string(overpass.SupportGroup)
	lab := geoElement(2, "Autism Diagnostic Lab", austin)
	lab.Category = string(overpass.Diagnostic)

	network := catalogProvider("c1", "Family Network", "Austin", "TX")
	network.Kind = raw.KindOrganization
	network.Category = "Support Groups"

	geodata := NewGeodataAdapter(&mockGeo{elements: []raw.GeoElement{circle, lab}})
	adapters := []Adapter{
		staticAdapter(raw.RemotePlaces, remotePlace("g1", "Austin Health Clinic", "Austin")),
		geodata,
		NewLocalAdapter(&mockCatalog{entries: []raw.CatalogEntry{
			network,
			catalogProvider("c2", "Bright Steps Therapy", "Austin", "TX"),
		}}),
	}
	svc := newTestService(adapters, geodata, nil, nil)

	resp, err := svc.Search(context.Background(), Request{Params: domsearch.Params{
		Location: austin,
		Category: "Support Groups",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range resp.Results {
		if !r.MatchesCategory("Support Groups") {
			t.Errorf("%s with category %q leaked through the filter", r.Name, r.Category)
		}
	}
	if resp.Sources != (SourceCounts{Google: 0, OSM: 1, Local: 1}) {
		t.Errorf("unexpected source counts %+v", resp.Sources)
	}
	if resp.TotalResults != 2 {
		t.Errorf("expected 2 support groups, got %d", resp.TotalResults)
	}
}

func TestSearch_UnmatchedCategoryDropsResolvedGeodataLabel(t *testing.T) {
	loc := &geo.Point{Lat: 30, Lng: -97}
	g := &mockGeo{elements: []raw.GeoElement{geoElement(1, "Speech Works", loc)}}
	geodata := NewGeodataAdapter(g)
	svc := newTestService([]Adapter{geodata}, geodata, nil, nil)

	resp, err := svc.Search(context.Background(), Request{Params: domsearch.Params{
		Location: loc,
		Category: "Mental Health",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.category != overpass.Therapists {
		t.Fatalf("expected fallback category queried, got %q", g.category)
	}
	if resp.TotalResults != 0 || resp.Sources.OSM != 0 {
		t.Errorf("expected no results for %q, got %+v", "Mental Health", resp.Results)
	}
}

func TestSearch_EventCarriesLiveFetchCost(t *testing.T) {
	live := &funcAdapter{src: raw.RemotePlaces, lookup: func(context.Context, *domsearch.Query) (Batch, error) {
		return Batch{Records: []raw.Record{remotePlace("g", "ABA Center", "")}, Cost: 0.032}, nil
	}}
	sink := &mockSink{}
	resp, err := newTestService([]Adapter{live}, nil, nil, sink).Search(context.Background(), Request{Params: domsearch.Params{Text: "aba"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.EstimatedCost != 0.032 {
		t.Errorf("expected response cost 0.032, got %v", resp.EstimatedCost)
	}
	if len(sink.events) != 1 || sink.events[0].EstimatedCost != 0.032 {
		t.Errorf("expected one event with cost 0.032, got %+v", sink.events)
	}
}

func TestParseLocationStatus(t *testing.T) {
	for _, in := range []string{"", "granted", "denied", "unavailable"} {
		if _, err := ParseLocationStatus(in); err != nil {
			t.Errorf("%q: unexpected error %v", in, err)
		}
	}
	if _, err := ParseLocationStatus("maybe"); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestNearby_NormalizesWithoutRanking(t *testing.T) {
	loc := geo.Point{Lat: 30, Lng: -97}
	g := &mockGeo{elements: []raw.GeoElement{
		geoElement(1, "Zeta Therapy", &loc),
		geoElement(2, "Alpha Therapy", &loc),
		{Type: "node", ID: 3, Tags: map[string]string{}},
	}}
	svc := newTestService(nil, NewGeodataAdapter(g), nil, nil)

	resp, err := svc.Nearby(context.Background(), NearbyRequest{Location: &loc, Category: "support"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 named results, got %d", len(resp.Results))
	}
	if resp.Results[0].Name != "Zeta Therapy" || resp.Results[0].RelevanceScore != nil {
		t.Errorf("expected upstream order and no score, got %+v", resp.Results[0])
	}
	if resp.Category != overpass.SupportGroup {
		t.Errorf("expected %q, got %q", overpass.SupportGroup, resp.Category)
	}
}

func TestNearby_RequiresLocation(t *testing.T) {
	svc := newTestService(nil, NewGeodataAdapter(&mockGeo{}), nil, nil)

	_, err := svc.Nearby(context.Background(), NearbyRequest{})
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
	_, err = svc.Nearby(context.Background(), NearbyRequest{LocationStatus: LocationDenied})
	if !errors.Is(err, domain.ErrGeolocationDenied) {
		t.Errorf("expected ErrGeolocationDenied, got %v", err)
	}
}

func TestNearby_UpstreamError(t *testing.T) {
	loc := geo.Point{Lat: 30, Lng: -97}
	svc := newTestService(nil, NewGeodataAdapter(&mockGeo{err: domain.ErrUpstreamUnavailable}), nil, nil)

	_, err := svc.Nearby(context.Background(), NearbyRequest{Location: &loc})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
