// Package chi exposes the careatlas JSON API over a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/catalog"
	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	"github.com/kailas-cloud/careatlas/internal/domain/place"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	domsearch "github.com/kailas-cloud/careatlas/internal/domain/search"
	domusage "github.com/kailas-cloud/careatlas/internal/domain/usage"
	"github.com/kailas-cloud/careatlas/internal/logger"
	healthuc "github.com/kailas-cloud/careatlas/internal/usecase/health"
	placesuc "github.com/kailas-cloud/careatlas/internal/usecase/places"
	searchuc "github.com/kailas-cloud/careatlas/internal/usecase/search"
)

// SessionHeader scopes geodata supersession across requests of one caller.
const SessionHeader = "X-Session-ID"

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

type hybridSearcher interface {
	Search(ctx context.Context, req searchuc.Request) (searchuc.Response, error)
	Nearby(ctx context.Context, req searchuc.NearbyRequest) (searchuc.NearbyResponse, error)
}

type placesSearcher interface {
	Search(ctx context.Context, req lookup.Request, userAgent string) (placesuc.Response, error)
}

type catalogFilter interface {
	Filter(p catalog.FilterParams) ([]raw.CatalogEntry, catalog.Facets)
}

type usageReporter interface {
	GetReport(ctx context.Context, date string) (domusage.Report, error)
}

type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the careatlas HTTP API.
type Server struct {
	search        hybridSearcher
	places        placesSearcher
	catalog       catalogFilter
	usage         usageReporter
	health        healthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search hybridSearcher,
	places placesSearcher,
	catalog catalogFilter,
	usage usageReporter,
	health healthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		places:  places,
		catalog: catalog,
		usage:   usage,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		invalidQueryHandler,
		sentinelHandler(domain.ErrGeolocationDenied, http.StatusUnprocessableEntity, codeGeolocationDenied),
		sentinelHandler(domain.ErrLocationNotFound, http.StatusNotFound, codeLocationNotFound),
		sentinelHandler(domain.ErrMissingCredentials, http.StatusInternalServerError, codeMissingCredentials),
		sentinelHandler(domain.ErrUpstreamStatus, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrSourceTimeout, http.StatusGatewayTimeout, codeUpstreamTimeout),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, codeUpstreamTimeout),
		sentinelHandler(context.Canceled, http.StatusConflict, codeSuperseded),
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/search/hybrid", s.HybridSearch)
	r.Post("/v1/places/search", s.PlacesSearch)
	r.Post("/v1/providers/nearby", s.NearbyProviders)
	r.Get("/v1/catalog", s.Catalog)
	r.Get("/v1/usage", s.GetUsage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// HybridSearch handles POST /v1/search/hybrid.
func (s *Server) HybridSearch(w http.ResponseWriter, r *http.Request) {
	var req hybridSearchRequest
	if !s.decodeBody(w, r, hybridSearchSchema, &req) {
		return
	}

	status, err := searchuc.ParseLocationStatus(req.LocationStatus)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	sessionID := s.sessionID(w, r, req.SessionID)
	resp, err := s.search.Search(r.Context(), searchuc.Request{
		Params: domsearch.Params{
			Text:           req.Query,
			Location:       req.Location,
			RadiusMeters:   req.Radius,
			Category:       req.Category,
			IncludeRemote:  req.IncludeGoogle,
			IncludeGeodata: req.IncludeOSM,
			IncludeLocal:   req.IncludeLocal,
			MaxResults:     req.MaxResults,
			SessionID:      sessionID,
			UserAgent:      r.UserAgent(),
		},
		LocationQuery:  req.LocationQuery,
		LocationStatus: status,
	})
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, hybridToDTO(&resp))
}

// PlacesSearch handles POST /v1/places/search.
func (s *Server) PlacesSearch(w http.ResponseWriter, r *http.Request) {
	var req placesSearchRequest
	if !s.decodeBody(w, r, placesSearchSchema, &req) {
		return
	}

	kind, err := lookup.ParseKind(req.Type)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	resp, err := s.places.Search(r.Context(), lookup.Request{
		Kind:         kind,
		Query:        req.Query,
		Location:     req.Location,
		RadiusMeters: req.Radius,
		Category:     req.Category,
	}, r.UserAgent())
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	recs := make([]raw.Record, len(resp.Places))
	for i := range resp.Places {
		recs[i] = resp.Places[i]
	}
	results := resultsToDTO(place.NormalizeAll(recs, nil))
	writeJSON(w, http.StatusOK, placesSearchResponse{
		Results:        results,
		TotalResults:   len(results),
		CacheHit:       resp.CacheHit,
		ResponseTimeMS: resp.ResponseTime.Milliseconds(),
		Source:         resp.Source,
	})
}

// NearbyProviders handles POST /v1/providers/nearby.
func (s *Server) NearbyProviders(w http.ResponseWriter, r *http.Request) {
	var req nearbyRequest
	if !s.decodeBody(w, r, nearbySchema, &req) {
		return
	}

	status, err := searchuc.ParseLocationStatus(req.LocationStatus)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	resp, err := s.search.Nearby(r.Context(), searchuc.NearbyRequest{
		Location:       req.Location,
		LocationQuery:  req.LocationQuery,
		LocationStatus: status,
		RadiusMeters:   req.Radius,
		Category:       req.Category,
		SessionID:      s.sessionID(w, r, req.SessionID),
	})
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	results := resultsToDTO(resp.Results)
	writeJSON(w, http.StatusOK, nearbyResponse{
		Results:      results,
		TotalResults: len(results),
		Category:     string(resp.Category),
		Location:     resp.Location,
	})
}

// Catalog handles GET /v1/catalog.
func (s *Server) Catalog(w http.ResponseWriter, r *http.Request) {
	var params catalogParams
	query := r.URL.Query()
	bindings := []struct {
		name string
		dest any
	}{
		{"query", &params.Query},
		{"category", &params.Category},
		{"location", &params.Location},
		{"type", &params.Type},
		{"minRating", &params.MinRating},
		{"telehealth", &params.Telehealth},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("Invalid format for parameter %s", b.name))
			return
		}
	}

	kind := derefString(params.Type)
	switch kind {
	case "", raw.KindProvider, raw.KindOrganization, raw.KindResource:
	default:
		writeError(w, http.StatusBadRequest, codeInvalidQuery, "type must be provider, organization or resource")
		return
	}

	entries, facets := s.catalog.Filter(catalog.FilterParams{
		Query:      derefString(params.Query),
		Category:   derefString(params.Category),
		Location:   derefString(params.Location),
		Kind:       kind,
		MinRating:  derefFloat(params.MinRating),
		Telehealth: derefBool(params.Telehealth),
	})

	recs := make([]raw.Record, len(entries))
	for i := range entries {
		recs[i] = entries[i]
	}
	results := resultsToDTO(place.NormalizeAll(recs, nil))
	writeJSON(w, http.StatusOK, catalogResponse{
		Results:      results,
		TotalResults: len(results),
		Facets: facetsDTO{
			Categories: facets.Categories,
			Locations:  facets.Locations,
		},
	})
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var params usageParams
	if err := runtime.BindQueryParameter("form", true, false, "date", r.URL.Query(), &params.Date); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter date")
		return
	}

	report, err := s.usage.GetReport(r.Context(), derefString(params.Date))
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, usageToDTO(&report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeBody validates the body against schema and decodes it into dest.
// On failure it writes a 400 response and returns false.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dest any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if strings.TrimSpace(string(body)) == "" {
		body = []byte("{}")
	}
	if err := validateBody(schema, body); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// sessionID picks the caller session (header first, then body), minting one
// when absent, and echoes it in the response.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request, fromBody string) string {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		id = strings.TrimSpace(fromBody)
	}
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Code:    code,
		Results: []resultDTO{},
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrGeolocationDenied,
		domain.ErrLocationNotFound,
		domain.ErrMissingCredentials,
		domain.ErrUpstreamStatus,
		domain.ErrUpstreamUnavailable,
		domain.ErrSourceTimeout,
		context.DeadlineExceeded,
		context.Canceled,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidQueryHandler reports ErrInvalidQuery with its validation detail:
// those messages are built from the request itself.
func invalidQueryHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidQuery) {
		return false
	}
	msg := err.Error()
	if i := strings.Index(msg, domain.ErrInvalidQuery.Error()); i > 0 {
		msg = msg[i:]
	}
	writeError(w, http.StatusBadRequest, codeInvalidQuery, msg)
	return true
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContextOr(ctx, s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
