package placescache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
)

var (
	austin  = geo.Point{Lat: 30.2672, Lng: -97.7431}
	roundRk = geo.Point{Lat: 30.5083, Lng: -97.6789} // ~27 km from Austin
	dallas  = geo.Point{Lat: 32.7767, Lng: -96.7970} // ~290 km from Austin
)

func TestRecent_FiltersByArea(t *testing.T) {
	c, _, clk, _ := newTestCache(t)
	ctx := context.Background()

	mustPut(t, c, params("near", &roundRk), "n1")
	clk.Advance(time.Minute)
	mustPut(t, c, params("far", &dallas), "f1")

	got := c.Recent(ctx, Area{Center: &austin, RadiusMeters: 50_000}, 10)
	if len(got) != 1 || got[0].Params.Query != "near" {
		t.Fatalf("expected only the nearby entry, got %+v", got)
	}
}

func TestRecent_NewestFirstAndLimit(t *testing.T) {
	c, _, clk, _ := newTestCache(t)
	ctx := context.Background()

	for _, q := range []string{"one", "two", "three"} {
		mustPut(t, c, params(q, &austin), q)
		clk.Advance(time.Minute)
	}

	got := c.Recent(ctx, Area{Center: &austin, RadiusMeters: 10_000}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Params.Query != "three" || got[1].Params.Query != "two" {
		t.Errorf("expected newest first, got %s, %s", got[0].Params.Query, got[1].Params.Query)
	}
}

func TestRecent_NoCenterMatchesAll(t *testing.T) {
	c, _, _, _ := newTestCache(t)

	mustPut(t, c, params("located", &dallas), "a")
	mustPut(t, c, params("text only", nil), "b")

	got := c.Recent(context.Background(), Area{}, 10)
	if len(got) != 2 {
		t.Errorf("expected 2 entries, got %d", len(got))
	}
}

func TestRecent_EvictsExpired(t *testing.T) {
	c, _, clk, _ := newTestCache(t)

	mustPutTTL(t, c, params("short", &austin), time.Minute, "s")
	mustPutTTL(t, c, params("long", &austin), time.Hour, "l")
	clk.Advance(2 * time.Minute)

	got := c.Recent(context.Background(), Area{Center: &austin, RadiusMeters: 1000}, 10)
	if len(got) != 1 || got[0].Params.Query != "long" {
		t.Fatalf("expected only the unexpired entry, got %+v", got)
	}
	if c.Indexed() != 1 {
		t.Errorf("expected expired entry evicted from index, got %d indexed", c.Indexed())
	}
}

func TestRecent_DropsKeysGoneFromStore(t *testing.T) {
	c, ms, _, _ := newTestCache(t)
	p := params("vanished", &austin)
	mustPut(t, c, p, "v")
	delete(ms.data, c.Key(p))

	if got := c.Recent(context.Background(), Area{Center: &austin, RadiusMeters: 1000}, 10); len(got) != 0 {
		t.Errorf("expected no entries, got %+v", got)
	}
	if c.Indexed() != 0 {
		t.Error("missing key must be removed from the index")
	}
}

func TestPut_ReindexesSameKey(t *testing.T) {
	c, _, _, _ := newTestCache(t)
	p := params("aba", &austin)
	mustPut(t, c, p, "a")
	mustPut(t, c, p, "b")

	if c.Indexed() != 1 {
		t.Errorf("expected 1 indexed entry, got %d", c.Indexed())
	}
	got := c.Recent(context.Background(), Area{Center: &austin, RadiusMeters: 1000}, 10)
	if len(got) != 1 || got[0].Results[0].PlaceID != "b" {
		t.Errorf("expected the latest write, got %+v", got)
	}
}

func TestWarm_IndexesStoredEntries(t *testing.T) {
	c, ms, clk, _ := newTestCache(t)
	mustPut(t, c, params("a", &austin), "a")
	mustPutTTL(t, c, params("b", &dallas), time.Minute, "b")
	ms.data["careatlas:places:text_search_corrupt"] = []byte("nope")
	clk.Advance(2 * time.Minute)

	fresh := New(ms, "careatlas:", "google_places", nil, c.logger, WithClock(clk.Now))
	n, err := fresh.Warm(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || fresh.Indexed() != 1 {
		t.Errorf("expected 1 warmed entry, got n=%d indexed=%d", n, fresh.Indexed())
	}
}

func TestWarm_ScanError(t *testing.T) {
	c, ms, _, _ := newTestCache(t)
	ms.scanErr = errors.New("boom")

	if _, err := c.Warm(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func mustPut(t *testing.T, c *Cache, p lookup.CacheParams, ids ...string) {
	t.Helper()
	mustPutTTL(t, c, p, 24*time.Hour, ids...)
}

func mustPutTTL(t *testing.T, c *Cache, p lookup.CacheParams, ttl time.Duration, ids ...string) {
	t.Helper()
	if err := c.Put(context.Background(), p, places(ids...), ttl); err != nil {
		t.Fatalf("put: %v", err)
	}
}
