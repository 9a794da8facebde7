// Package search implements the hybrid aggregation pipeline: fan-out to the
// remote places, public geodata and local catalog sources, then normalization,
// deduplication and ranking of the merged records.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/place"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	domsearch "github.com/kailas-cloud/careatlas/internal/domain/search"
	"github.com/kailas-cloud/careatlas/internal/logger"
	"github.com/kailas-cloud/careatlas/internal/metrics"
)

// StrategyHybrid labels responses of the hybrid pipeline.
const StrategyHybrid = "hybrid"

// DefaultDedupPrefixLen is the location prefix length of the identity key.
const DefaultDedupPrefixLen = 20

// LocationStatus is the caller's device geolocation state.
type LocationStatus string

// Location statuses.
const (
	LocationGranted     LocationStatus = "granted"
	LocationDenied      LocationStatus = "denied"
	LocationUnavailable LocationStatus = "unavailable"
)

// ParseLocationStatus validates a location status. Empty is allowed.
func ParseLocationStatus(s string) (LocationStatus, error) {
	switch st := LocationStatus(strings.TrimSpace(s)); st {
	case "", LocationGranted, LocationDenied, LocationUnavailable:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown location status %q", domain.ErrInvalidQuery, s)
	}
}

// Request is a hybrid search request before validation.
type Request struct {
	Params         domsearch.Params
	LocationQuery  string
	LocationStatus LocationStatus
}

// SourceCounts counts normalized records per source, before dedup.
type SourceCounts struct {
	Google int
	OSM    int
	Local  int
}

// SourceReport summarizes one source outcome.
type SourceReport struct {
	Source   raw.Source
	Status   OutcomeStatus
	Count    int
	Duration time.Duration
	Error    string
}

// Response is the hybrid search envelope.
type Response struct {
	Results        []place.Result
	TotalResults   int
	Sources        SourceCounts
	SearchStrategy string
	SourceReports  []SourceReport
	ResponseTime   time.Duration
	CacheHit       bool
	EstimatedCost  float64    // USD billed by live upstream calls made for this search
	Location       *geo.Point // resolved caller location, nil when unknown
}

// Config holds pipeline settings.
type Config struct {
	Limits         domsearch.Limits
	DedupPrefixLen int
}

// Service runs hybrid searches and direct nearby geodata searches.
type Service struct {
	dispatcher *Dispatcher
	geodata    *GeodataAdapter
	geocoder   Geocoder
	events     EventSink
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a Service. geodata, geocoder and events can be nil.
func New(dispatcher *Dispatcher, geodata *GeodataAdapter, geocoder Geocoder, events EventSink, cfg Config, logger *zap.Logger) *Service {
	if cfg.DedupPrefixLen <= 0 {
		cfg.DedupPrefixLen = DefaultDedupPrefixLen
	}
	return &Service{
		dispatcher: dispatcher,
		geodata:    geodata,
		geocoder:   geocoder,
		events:     events,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Search runs the hybrid pipeline. Source failures never fail the search; only
// invalid input and location resolution errors do.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	start := s.now()
	q, err := s.query(ctx, req)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return Response{}, err
	}

	ctx = logger.WithFields(ctx, s.logger,
		zap.String("session_id", q.SessionID()),
		zap.String("search_type", analytics.SearchTypeHybrid),
	)
	outcomes := s.dispatcher.Dispatch(ctx, &q)
	resp := s.assemble(ctx, &q, outcomes)
	resp.ResponseTime = s.now().Sub(start)

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	metrics.SearchResults.Observe(float64(resp.TotalResults))
	s.emit(ctx, &q, &resp)
	return resp, nil
}

func (s *Service) query(ctx context.Context, req Request) (domsearch.Query, error) {
	locationQuery := strings.TrimSpace(req.LocationQuery)
	if req.LocationStatus == LocationDenied && req.Params.Location == nil && locationQuery == "" {
		return domsearch.Query{}, domain.ErrGeolocationDenied
	}

	q, err := domsearch.New(req.Params, s.cfg.Limits)
	if err != nil {
		return domsearch.Query{}, err
	}
	if q.HasLocation() || locationQuery == "" {
		return q, nil
	}

	loc, err := s.geocode(ctx, locationQuery)
	if err != nil {
		return domsearch.Query{}, err
	}
	return q.WithLocation(loc), nil
}

func (s *Service) geocode(ctx context.Context, text string) (geo.Point, error) {
	if s.geocoder == nil {
		return geo.Point{}, fmt.Errorf("%w: geocoding is not configured", domain.ErrLocationNotFound)
	}
	p, err := s.geocoder.Geocode(ctx, text)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode %q: %w", text, err)
	}
	return p.Point, nil
}

func (s *Service) assemble(ctx context.Context, q *domsearch.Query, outcomes []Outcome) Response {
	resp := Response{
		SearchStrategy: StrategyHybrid,
		SourceReports:  make([]SourceReport, 0, len(outcomes)),
		Location:       q.Location(),
		CacheHit:       true,
	}

	var merged []place.Result
	for i := range outcomes {
		o := &outcomes[i]
		results := keepCategory(s.normalize(ctx, o), q.Category())
		merged = append(merged, results...)
		resp.EstimatedCost += o.Cost

		switch o.Source {
		case raw.RemotePlaces:
			resp.Sources.Google = len(results)
			if o.Status == StatusOK && !o.CacheHit {
				resp.CacheHit = false
			}
		case raw.PublicGeodata:
			resp.Sources.OSM = len(results)
		case raw.LocalStatic:
			resp.Sources.Local = len(results)
		}

		report := SourceReport{Source: o.Source, Status: o.Status, Count: len(results), Duration: o.Duration}
		if o.Err != nil {
			report.Error = publicError(o.Err)
		}
		resp.SourceReports = append(resp.SourceReports, report)
	}

	unique := place.Dedup(merged, s.cfg.DedupPrefixLen)
	resp.Results = place.Rank(unique, place.RankOptions{
		Query:      q.Text(),
		Location:   q.Location(),
		MaxResults: q.MaxResults(),
	})
	resp.TotalResults = len(resp.Results)
	return resp
}

// normalize converts one outcome's records, logging and counting drops.
func (s *Service) normalize(ctx context.Context, o *Outcome) []place.Result {
	if len(o.Records) == 0 {
		return nil
	}
	log := logger.FromContextOr(ctx, s.logger)
	return place.NormalizeAll(o.Records, func(_ raw.Record, err error) {
		metrics.RecordsDroppedTotal.WithLabelValues(string(o.Source)).Inc()
		log.Debug("record dropped", zap.String("source", string(o.Source)), zap.Error(err))
	})
}

// keepCategory drops results whose category does not contain category.
// Geodata elements carry their resolved fixed category and are filtered the same way.
func keepCategory(results []place.Result, category string) []place.Result {
	if category == "" {
		return results
	}
	kept := results[:0]
	for i := range results {
		if results[i].MatchesCategory(category) {
			kept = append(kept, results[i])
		}
	}
	return kept
}

// publicError reduces a source error to the sentinel text safe for clients.
func publicError(err error) string {
	for _, sentinel := range []error{
		domain.ErrSourceTimeout,
		domain.ErrUpstreamStatus,
		domain.ErrUpstreamUnavailable,
		domain.ErrMissingCredentials,
		context.Canceled,
		ErrSourcePanic,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "source failed"
}

func (s *Service) emit(ctx context.Context, q *domsearch.Query, resp *Response) {
	if s.events == nil {
		return
	}
	e := analytics.NewEvent(analytics.SearchTypeHybrid, q.Text(), s.now())
	e.Location = q.Location()
	e.Category = q.Category()
	e.CacheHit = resp.CacheHit
	e.ResponseTimeMS = resp.ResponseTime.Milliseconds()
	e.ResultCount = resp.TotalResults
	e.EstimatedCost = resp.EstimatedCost
	e.UserAgent = q.UserAgent()
	if err := s.events.Record(context.WithoutCancel(ctx), e); err != nil {
		logger.FromContextOr(ctx, s.logger).Debug("analytics event dropped", zap.Error(err))
	}
}
