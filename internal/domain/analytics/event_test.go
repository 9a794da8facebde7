package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("PST", -8*3600))
	e := NewEvent(SearchTypeHybrid, "aba therapy", now)

	if e.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if e.SearchType != "hybrid" || e.Query != "aba therapy" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.CreatedAt.Location() != time.UTC || !e.CreatedAt.Equal(now) {
		t.Errorf("expected UTC timestamp, got %v", e.CreatedAt)
	}

	other := NewEvent(SearchTypeHybrid, "aba therapy", now)
	if other.ID == e.ID {
		t.Error("expected unique ids")
	}
}

func TestPlacesSearchType(t *testing.T) {
	if got := PlacesSearchType("text_search"); got != "places:text_search" {
		t.Errorf("unexpected type %q", got)
	}
}
