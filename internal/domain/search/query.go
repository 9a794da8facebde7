package search

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
)

// Query limits and defaults.
const (
	MaxQueryLength      = 512
	DefaultRadiusMeters = 50_000.0
	DefaultMaxResults   = 50
	MaxRadiusMeters     = 500_000.0
)

// Params is the unvalidated input of New. Nil source flags mean enabled.
type Params struct {
	Text           string
	Location       *geo.Point
	RadiusMeters   float64
	Category       string
	IncludeRemote  *bool
	IncludeGeodata *bool
	IncludeLocal   *bool
	MaxResults     int
	SessionID      string
	UserAgent      string
}

// Limits carries configured defaults. Zero fields fall back to package defaults.
type Limits struct {
	DefaultRadiusMeters float64
	DefaultMaxResults   int
	MaxResultsLimit     int
}

// Query is a validated hybrid search request.
type Query struct {
	text       string
	location   *geo.Point
	radius     float64
	category   string
	remote     bool
	geodata    bool
	local      bool
	maxResults int
	sessionID  string
	userAgent  string
}

// New validates and normalizes search parameters.
func New(p Params, l Limits) (Query, error) {
	text := strings.TrimSpace(p.Text)
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}

	if p.Location != nil && !geo.ValidateCoordinates(p.Location.Lat, p.Location.Lng) {
		return Query{}, fmt.Errorf("%w: location out of range", domain.ErrInvalidQuery)
	}

	radius := p.RadiusMeters
	switch {
	case radius < 0:
		return Query{}, fmt.Errorf("%w: radius must be positive", domain.ErrInvalidQuery)
	case radius == 0:
		radius = l.DefaultRadiusMeters
		if radius <= 0 {
			radius = DefaultRadiusMeters
		}
	case radius > MaxRadiusMeters:
		radius = MaxRadiusMeters
	}

	maxResults := p.MaxResults
	switch {
	case maxResults < 0:
		return Query{}, fmt.Errorf("%w: maxResults must be positive", domain.ErrInvalidQuery)
	case maxResults == 0:
		maxResults = l.DefaultMaxResults
		if maxResults <= 0 {
			maxResults = DefaultMaxResults
		}
	}
	if l.MaxResultsLimit > 0 && maxResults > l.MaxResultsLimit {
		maxResults = l.MaxResultsLimit
	}

	var loc *geo.Point
	if p.Location != nil {
		pt := *p.Location
		loc = &pt
	}

	return Query{
		text:       text,
		location:   loc,
		radius:     radius,
		category:   strings.TrimSpace(p.Category),
		remote:     enabled(p.IncludeRemote),
		geodata:    enabled(p.IncludeGeodata),
		local:      enabled(p.IncludeLocal),
		maxResults: maxResults,
		sessionID:  p.SessionID,
		userAgent:  p.UserAgent,
	}, nil
}

func enabled(flag *bool) bool { return flag == nil || *flag }

// Text returns the trimmed free-text query (possibly empty).
func (q *Query) Text() string { return q.text }

// Location returns the caller location, nil when absent.
func (q *Query) Location() *geo.Point { return q.location }

// HasLocation reports whether a caller location is present.
func (q *Query) HasLocation() bool { return q.location != nil }

// RadiusMeters returns the search radius.
func (q *Query) RadiusMeters() float64 { return q.radius }

// Category returns the free-text category filter.
func (q *Query) Category() string { return q.category }

// MaxResults returns the result cap.
func (q *Query) MaxResults() int { return q.maxResults }

// SessionID returns the caller session used to supersede geodata requests.
func (q *Query) SessionID() string { return q.sessionID }

// UserAgent returns the caller user agent (analytics only).
func (q *Query) UserAgent() string { return q.userAgent }

// Enabled reports whether the given source takes part in the search.
func (q *Query) Enabled(src raw.Source) bool {
	switch src {
	case raw.RemotePlaces:
		return q.remote
	case raw.PublicGeodata:
		return q.geodata
	case raw.LocalStatic:
		return q.local
	default:
		return false
	}
}

// WithLocation returns a copy carrying the given location (e.g. after geocoding).
func (q Query) WithLocation(p geo.Point) Query {
	q.location = &p
	return q
}
