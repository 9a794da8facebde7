package usage

import (
	"math"
	"testing"
	"time"
)

func TestMicrosRoundTrip(t *testing.T) {
	if got := ToMicros(0.00283); got != 2830 {
		t.Errorf("expected 2830 micros, got %d", got)
	}
	if got := ToMicros(0.032); got != 32000 {
		t.Errorf("expected 32000 micros, got %d", got)
	}
	if got := FromMicros(17000); math.Abs(got-0.017) > 1e-12 {
		t.Errorf("expected 0.017, got %v", got)
	}
}

func TestDay_UsesUTC(t *testing.T) {
	ts := time.Date(2026, 5, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	if got := Day(ts); got != "2026-05-02" {
		t.Errorf("expected UTC day, got %q", got)
	}
}

func TestReport_Totals(t *testing.T) {
	r := NewReport("google_places", "2026-05-02", []Entry{
		NewEntry("google_places", "text_search", "2026-05-02", 3, ToMicros(0.096)),
		NewEntry("google_places", "autocomplete", "2026-05-02", 2, ToMicros(0.00566)),
	})

	if r.TotalRequests() != 5 {
		t.Errorf("expected 5 requests, got %d", r.TotalRequests())
	}
	if math.Abs(r.TotalCost()-0.10166) > 1e-9 {
		t.Errorf("unexpected total cost %v", r.TotalCost())
	}
	e := r.Entries()[0]
	if e.Endpoint() != "text_search" || e.RequestCount() != 3 || math.Abs(e.EstimatedCost()-0.096) > 1e-9 {
		t.Errorf("unexpected entry %+v", e)
	}
}
