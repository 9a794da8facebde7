package search

import (
	"context"
	"errors"
	"testing"
)

func TestSessions_NewCallCancelsPrevious(t *testing.T) {
	s := newSessions()

	first, doneFirst := s.begin(context.Background(), "s")
	second, doneSecond := s.begin(context.Background(), "s")

	if !errors.Is(first.Err(), context.Canceled) {
		t.Errorf("expected first call canceled, got %v", first.Err())
	}
	if !errors.Is(context.Cause(first), ErrSuperseded) {
		t.Errorf("expected ErrSuperseded cause, got %v", context.Cause(first))
	}
	if second.Err() != nil {
		t.Errorf("second call must stay live, got %v", second.Err())
	}

	doneFirst()
	if s.len() != 1 {
		t.Error("finishing a superseded call must not drop the newer one")
	}
	doneSecond()
	if s.len() != 0 {
		t.Errorf("expected empty registry, got %d", s.len())
	}
}

func TestSessions_EmptyIDNeverTracked(t *testing.T) {
	s := newSessions()
	a, doneA := s.begin(context.Background(), "")
	b, doneB := s.begin(context.Background(), "")
	defer doneA()
	defer doneB()

	if a.Err() != nil || b.Err() != nil {
		t.Error("anonymous calls must not supersede each other")
	}
	if s.len() != 0 {
		t.Errorf("expected no tracked sessions, got %d", s.len())
	}
}
