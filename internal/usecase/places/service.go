// Package places implements cache-through lookups against the remote places API.
package places

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	"github.com/kailas-cloud/careatlas/internal/domain/usage"
	"github.com/kailas-cloud/careatlas/internal/logger"
)

const defaultCostKey = "default"

// Config holds cache and cost settings.
type Config struct {
	Provider   string
	TTL        time.Duration
	DetailsTTL time.Duration
	Costs      map[string]float64 // USD per call by endpoint, "default" as fallback
}

// Response is the outcome of one lookup.
type Response struct {
	Places       []raw.RemotePlace
	CacheHit      bool
	Source        string
	ResponseTime  time.Duration
	EstimatedCost float64 // USD of the upstream call, 0 on a cache hit
}

// Service handles remote places lookups.
type Service struct {
	fetcher Fetcher
	cache   Cache
	ledger  Ledger
	events  EventSink
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Service. ledger and events can be nil.
func New(fetcher Fetcher, cache Cache, ledger Ledger, events EventSink, cfg Config, logger *zap.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.DetailsTTL <= 0 {
		cfg.DetailsTTL = 7 * 24 * time.Hour
	}
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		ledger:  ledger,
		events:  events,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Configured reports whether live upstream calls are possible.
func (s *Service) Configured() bool { return s.fetcher.Configured() }

// Search runs Lookup and records a search analytics event.
func (s *Service) Search(ctx context.Context, req lookup.Request, userAgent string) (Response, error) {
	resp, err := s.Lookup(ctx, req)
	if err != nil {
		return Response{}, err
	}
	s.emit(ctx, logger.FromContextOr(ctx, s.logger), &req, &resp, userAgent)
	return resp, nil
}

// Lookup serves req from the cache, falling back to the upstream API on a miss.
// Cache and ledger write failures are logged and never fail the call.
func (s *Service) Lookup(ctx context.Context, req lookup.Request) (Response, error) {
	start := s.now()
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	params := req.CacheParams()
	log := logger.FromContextOr(ctx, s.logger)

	resp := Response{Source: s.cfg.Provider}

	if entry, ok := s.cache.Get(ctx, params); ok {
		resp.Places = entry.Results
		resp.CacheHit = true
	} else {
		if !s.fetcher.Configured() {
			return Response{}, fmt.Errorf("%w: places api key is not set", domain.ErrMissingCredentials)
		}

		places, err := s.fetcher.Fetch(ctx, req)
		if err != nil {
			return Response{}, fmt.Errorf("places %s: %w", req.Kind, err)
		}
		resp.Places = places
		resp.EstimatedCost = s.cost(req.Kind)

		if err := s.cache.Put(ctx, params, places, s.ttl(req.Kind)); err != nil {
			log.Warn("places cache write failed", zap.String("kind", string(req.Kind)), zap.Error(err))
		}
		s.recordUsage(ctx, log, req.Kind, resp.EstimatedCost)
	}

	resp.ResponseTime = s.now().Sub(start)
	return resp, nil
}

func (s *Service) ttl(kind lookup.Kind) time.Duration {
	if kind == lookup.PlaceDetails {
		return s.cfg.DetailsTTL
	}
	return s.cfg.TTL
}

func (s *Service) cost(kind lookup.Kind) float64 {
	if c, ok := s.cfg.Costs[string(kind)]; ok {
		return c
	}
	return s.cfg.Costs[defaultCostKey]
}

func (s *Service) recordUsage(ctx context.Context, log *zap.Logger, kind lookup.Kind, cost float64) {
	if s.ledger == nil {
		return
	}
	date := usage.Day(s.now())
	if err := s.ledger.Record(ctx, s.cfg.Provider, string(kind), date, usage.ToMicros(cost)); err != nil {
		log.Warn("usage ledger write failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (s *Service) emit(ctx context.Context, log *zap.Logger, req *lookup.Request, resp *Response, userAgent string) {
	if s.events == nil {
		return
	}
	e := analytics.NewEvent(analytics.PlacesSearchType(string(req.Kind)), req.Query, s.now())
	e.Location = req.Location
	e.Category = req.Category
	e.CacheHit = resp.CacheHit
	e.ResponseTimeMS = resp.ResponseTime.Milliseconds()
	e.ResultCount = len(resp.Places)
	e.EstimatedCost = resp.EstimatedCost
	e.UserAgent = userAgent
	if err := s.events.Record(ctx, e); err != nil {
		log.Debug("analytics event dropped", zap.String("event_id", e.ID.String()), zap.Error(err))
	}
}
