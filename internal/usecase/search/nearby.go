package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/place"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	domsearch "github.com/kailas-cloud/careatlas/internal/domain/search"
	"github.com/kailas-cloud/careatlas/internal/logger"
	"github.com/kailas-cloud/careatlas/internal/metrics"
	"github.com/kailas-cloud/careatlas/internal/transport/overpass"
)

// NearbyRequest is a direct geodata search around a location.
type NearbyRequest struct {
	Location       *geo.Point
	LocationQuery  string
	LocationStatus LocationStatus
	RadiusMeters   float64
	Category       string
	SessionID      string
}

// NearbyResponse lists normalized geodata results in upstream order.
type NearbyResponse struct {
	Results  []place.Result
	Category overpass.Category
	Location geo.Point
}

// Nearby searches the public geodata source only. Results are normalized but
// not ranked. A newer call of the same session cancels this one.
func (s *Service) Nearby(ctx context.Context, req NearbyRequest) (NearbyResponse, error) {
	if s.geodata == nil {
		return NearbyResponse{}, fmt.Errorf("%w: geodata source is not configured", domain.ErrUpstreamUnavailable)
	}

	center, err := s.nearbyCenter(ctx, &req)
	if err != nil {
		return NearbyResponse{}, err
	}

	radius := req.RadiusMeters
	switch {
	case radius < 0:
		return NearbyResponse{}, fmt.Errorf("%w: radius must be positive", domain.ErrInvalidQuery)
	case radius == 0:
		radius = s.cfg.Limits.DefaultRadiusMeters
		if radius <= 0 {
			radius = domsearch.DefaultRadiusMeters
		}
	case radius > domsearch.MaxRadiusMeters:
		radius = domsearch.MaxRadiusMeters
	}

	elements, err := s.geodata.Nearby(ctx, req.SessionID, center, radius, req.Category)
	if err != nil {
		return NearbyResponse{}, fmt.Errorf("nearby search: %w", err)
	}

	log := logger.FromContextOr(ctx, s.logger)
	recs := make([]raw.Record, len(elements))
	for i := range elements {
		recs[i] = elements[i]
	}
	results := place.NormalizeAll(recs, func(_ raw.Record, err error) {
		metrics.RecordsDroppedTotal.WithLabelValues(string(raw.PublicGeodata)).Inc()
		log.Debug("record dropped", zap.String("source", string(raw.PublicGeodata)), zap.Error(err))
	})

	return NearbyResponse{
		Results:  results,
		Category: overpass.ResolveCategory(req.Category),
		Location: center,
	}, nil
}

func (s *Service) nearbyCenter(ctx context.Context, req *NearbyRequest) (geo.Point, error) {
	if req.Location != nil {
		if !geo.ValidateCoordinates(req.Location.Lat, req.Location.Lng) {
			return geo.Point{}, fmt.Errorf("%w: location out of range", domain.ErrInvalidQuery)
		}
		return *req.Location, nil
	}
	text := strings.TrimSpace(req.LocationQuery)
	if text != "" {
		return s.geocode(ctx, text)
	}
	if req.LocationStatus == LocationDenied {
		return geo.Point{}, domain.ErrGeolocationDenied
	}
	return geo.Point{}, fmt.Errorf("%w: location or locationQuery is required", domain.ErrInvalidQuery)
}
