package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockCredentials bool

func (m mockCredentials) Configured() bool { return bool(m) }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{}, mockCredentials(true))
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, c := range []string{ComponentCache, ComponentAnalytics, ComponentPlacesAPI} {
		if r.Checks[c] != CheckOK {
			t.Errorf("expected %s %q, got %q", c, CheckOK, r.Checks[c])
		}
	}
}

func TestCheck_CacheErrorDegrades(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("conn refused")}, &mockPinger{}, mockCredentials(true))
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentCache] != CheckError {
		t.Errorf("expected cache %q, got %q", CheckError, r.Checks[ComponentCache])
	}
	if r.Checks[ComponentAnalytics] != CheckOK {
		t.Errorf("expected analytics %q, got %q", CheckOK, r.Checks[ComponentAnalytics])
	}
}

func TestCheck_AnalyticsErrorDegrades(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{err: errors.New("timeout")}, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentAnalytics] != CheckError {
		t.Errorf("expected analytics %q, got %q", CheckError, r.Checks[ComponentAnalytics])
	}
}

func TestCheck_EverythingDown(t *testing.T) {
	svc := New(
		&mockPinger{err: errors.New("cache down")},
		&mockPinger{err: errors.New("pg down")},
		mockCredentials(true),
	)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_NoAnalytics(t *testing.T) {
	svc := New(&mockPinger{}, nil, mockCredentials(true))
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[ComponentAnalytics]; ok {
		t.Error("analytics check should be absent when analytics is nil")
	}
}

func TestCheck_PlacesUnconfiguredDoesNotDegrade(t *testing.T) {
	for name, places := range map[string]CredentialChecker{
		"nil":    nil,
		"no key":   mockCredentials(false),
	} {
		t.Run(name, func(t *testing.T) {
			r := New(&mockPinger{}, nil, places).Check(context.Background())
			if r.Status != Healthy {
				t.Errorf("expected %q, got %q", Healthy, r.Status)
			}
			if r.Checks[ComponentPlacesAPI] != CheckUnconfigured {
				t.Errorf("expected places_api %q, got %q", CheckUnconfigured, r.Checks[ComponentPlacesAPI])
			}
		})
	}
}

func TestCheck_OnlyCacheDown(t *testing.T) {
	r := New(&mockPinger{err: errors.New("fail")}, nil, nil).Check(context.Background())
	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}
