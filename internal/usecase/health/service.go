package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates that every pinged component failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckUnconfigured marks an optional component that is not set up. It does not degrade status.
	CheckUnconfigured CheckResult = "unconfigured"
)

// Component names reported by Check.
const (
	ComponentCache     = "cache"
	ComponentAnalytics = "analytics"
	ComponentPlacesAPI = "places_api"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache     Pinger
	analytics Pinger
	places    CredentialChecker
}

// New creates a Service. analytics and places can be nil.
func New(cache, analytics Pinger, places CredentialChecker) *Service {
	return &Service{cache: cache, analytics: analytics, places: places}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)
	pinged, failed := 0, 0

	ping := func(name string, p Pinger) {
		pinged++
		if err := p.Ping(ctx); err != nil {
			checks[name] = CheckError
			failed++
			return
		}
		checks[name] = CheckOK
	}

	ping(ComponentCache, s.cache)
	if s.analytics != nil {
		ping(ComponentAnalytics, s.analytics)
	}

	if s.places != nil && s.places.Configured() {
		checks[ComponentPlacesAPI] = CheckOK
	} else {
		checks[ComponentPlacesAPI] = CheckUnconfigured
	}

	status := Healthy
	switch {
	case failed == pinged:
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
