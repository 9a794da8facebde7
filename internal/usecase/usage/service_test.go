package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/careatlas/internal/domain"
	domusage "github.com/kailas-cloud/careatlas/internal/domain/usage"
)

// --- Mock ---

type mockLedger struct {
	counts map[string][2]int64 // endpoint -> requests, cost micros
	err    error
	dates  []string
}

func (m *mockLedger) Entry(_ context.Context, provider, endpoint, date string) (domusage.Entry, error) {
	m.dates = append(m.dates, date)
	if m.err != nil {
		return domusage.Entry{}, m.err
	}
	c := m.counts[endpoint]
	return domusage.NewEntry(provider, endpoint, date, c[0], c[1]), nil
}

// --- Tests ---

func TestGetReport_AggregatesEndpoints(t *testing.T) {
	l := &mockLedger{counts: map[string][2]int64{
		"text_search":   {3, 96_000},
		"place_details": {1, 17_000},
	}}
	svc := New(l, "google_places")

	r, err := svc.GetReport(context.Background(), "2026-05-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Provider() != "google_places" || r.Date() != "2026-05-04" {
		t.Errorf("unexpected report header %s/%s", r.Provider(), r.Date())
	}
	if len(r.Entries()) != 4 {
		t.Errorf("expected one entry per endpoint, got %d", len(r.Entries()))
	}
	if r.TotalRequests() != 4 {
		t.Errorf("expected 4 requests, got %d", r.TotalRequests())
	}
	if got := r.TotalCost(); got < 0.1129 || got > 0.1131 {
		t.Errorf("expected total cost 0.113, got %v", got)
	}
}

func TestGetReport_DefaultsToToday(t *testing.T) {
	l := &mockLedger{}
	svc := New(l, "google_places")
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 23, 30, 0, 0, time.UTC) }

	r, err := svc.GetReport(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Date() != "2026-01-02" {
		t.Errorf("expected 2026-01-02, got %s", r.Date())
	}
}

func TestGetReport_InvalidDate(t *testing.T) {
	_, err := New(&mockLedger{}, "google_places").GetReport(context.Background(), "05/04/2026")
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestGetReport_LedgerError(t *testing.T) {
	_, err := New(&mockLedger{err: errors.New("redis down")}, "google_places").GetReport(context.Background(), "")
	if err == nil {
		t.Fatal("expected error")
	}
}
