// Package lookup models a direct request against the remote places API.
package lookup

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
)

// Kind is a remote places endpoint.
type Kind string

// Supported endpoints. The string values double as ledger endpoint names.
const (
	TextSearch   Kind = "text_search"
	NearbySearch Kind = "nearby_search"
	PlaceDetails Kind = "place_details"
	Autocomplete Kind = "autocomplete"
)

// Kinds lists every endpoint.
func Kinds() []Kind {
	return []Kind{TextSearch, NearbySearch, PlaceDetails, Autocomplete}
}

// ParseKind maps a request type to a Kind. Empty defaults to text search.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimSpace(s)); k {
	case "":
		return TextSearch, nil
	case TextSearch, NearbySearch, PlaceDetails, Autocomplete:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown search type %q", domain.ErrInvalidQuery, s)
	}
}

// DefaultRadiusMeters applies when a request carries no radius.
const DefaultRadiusMeters = 50_000.0

// Request is one places API lookup. For PlaceDetails, Query holds the place id.
type Request struct {
	Kind         Kind
	Query        string
	Location     *geo.Point
	RadiusMeters float64
	Category     string
}

// Validate normalizes defaults and checks that the endpoint has what it needs.
func (r *Request) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	r.Category = strings.TrimSpace(r.Category)
	if r.Kind == "" {
		r.Kind = TextSearch
	}
	if r.RadiusMeters < 0 {
		return fmt.Errorf("%w: radius must be positive", domain.ErrInvalidQuery)
	}
	if r.RadiusMeters == 0 {
		r.RadiusMeters = DefaultRadiusMeters
	}
	if r.Location != nil && !geo.ValidateCoordinates(r.Location.Lat, r.Location.Lng) {
		return fmt.Errorf("%w: location out of range", domain.ErrInvalidQuery)
	}

	switch r.Kind {
	case NearbySearch:
		if r.Location == nil {
			return fmt.Errorf("%w: nearby search requires a location", domain.ErrInvalidQuery)
		}
	case TextSearch, Autocomplete:
		if r.Query == "" {
			return fmt.Errorf("%w: %s requires a query", domain.ErrInvalidQuery, r.Kind)
		}
	case PlaceDetails:
		if r.Query == "" {
			return fmt.Errorf("%w: place details requires a place id", domain.ErrInvalidQuery)
		}
	default:
		return fmt.Errorf("%w: unknown search type %q", domain.ErrInvalidQuery, r.Kind)
	}
	return nil
}

// CacheParams is the identity of a request in the places cache.
// Field order is part of the key derivation.
type CacheParams struct {
	Query    string     `json:"query"`
	Location *geo.Point `json:"location,omitempty"`
	Radius   float64    `json:"radius"`
	Type     Kind       `json:"type"`
	Category string     `json:"category,omitempty"`
}

// CacheParams returns the cache identity of r.
func (r *Request) CacheParams() CacheParams {
	return CacheParams{
		Query:    r.Query,
		Location: r.Location,
		Radius:   r.RadiusMeters,
		Type:     r.Kind,
		Category: r.Category,
	}
}
