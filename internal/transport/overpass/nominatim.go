package overpass

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
)

// Place is a geocoding hit.
type Place struct {
	Point       geo.Point
	DisplayName string
}

type nominatimHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves free text to the best-matching point. No match returns
// domain.ErrLocationNotFound.
func (c *Client) Geocode(ctx context.Context, query string) (Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, fmt.Errorf("%w: empty location query", domain.ErrInvalidQuery)
	}

	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"0"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.nominatimURL+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return Place{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var hits []nominatimHit
	if err := c.do(req, "geocode", &hits); err != nil {
		return Place{}, err
	}
	if len(hits) == 0 {
		return Place{}, fmt.Errorf("%w: %q", domain.ErrLocationNotFound, query)
	}

	lat, latErr := strconv.ParseFloat(hits[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(hits[0].Lon, 64)
	if latErr != nil || lonErr != nil || !geo.ValidateCoordinates(lat, lon) {
		return Place{}, fmt.Errorf("%w: %q", domain.ErrLocationNotFound, query)
	}

	return Place{Point: geo.Point{Lat: lat, Lng: lon}, DisplayName: hits[0].DisplayName}, nil
}
