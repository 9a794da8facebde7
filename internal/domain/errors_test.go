package domain

import (
	"errors"
	"testing"
)

func TestUpstreamStatusError(t *testing.T) {
	err := NewUpstreamStatus("google_places", "REQUEST_DENIED", "The provided API key is invalid.")

	if !errors.Is(err, ErrUpstreamStatus) {
		t.Fatal("expected errors.Is ErrUpstreamStatus")
	}

	var use *UpstreamStatusError
	if !errors.As(err, &use) {
		t.Fatal("expected *UpstreamStatusError")
	}
	if use.Status != "REQUEST_DENIED" {
		t.Errorf("unexpected status %q", use.Status)
	}

	want := "upstream returned an error status: google_places status REQUEST_DENIED: The provided API key is invalid."
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestUpstreamStatusError_NoMessage(t *testing.T) {
	err := NewUpstreamStatus("google_places", "ZERO_RESULTS", "")
	want := "upstream returned an error status: google_places status ZERO_RESULTS"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
