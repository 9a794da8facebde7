// Package places is a client for the Google Places web service.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	"github.com/kailas-cloud/careatlas/internal/metrics"
)

// Provider is the metrics and error label of this client.
const Provider = "google_places"

// placeTypes restricts search endpoints to health-related places.
const placeTypes = "health|doctor|hospital|physiotherapist|establishment"

const maxBodyBytes = 4 << 20

// Status values of the web service.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

var endpointPaths = map[lookup.Kind]string{
	lookup.TextSearch:   "textsearch/json",
	lookup.NearbySearch: "nearbysearch/json",
	lookup.PlaceDetails: "details/json",
	lookup.Autocomplete: "autocomplete/json",
}

// Config holds the client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the places endpoints.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// NewClient creates a places client.
func NewClient(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Fetch performs one lookup. A non-OK status yields *domain.UpstreamStatusError;
// transport and decoding failures wrap domain.ErrUpstreamUnavailable.
func (c *Client) Fetch(ctx context.Context, req lookup.Request) ([]raw.RemotePlace, error) {
	if !c.Configured() {
		return nil, domain.ErrMissingCredentials
	}
	path, ok := endpointPaths[req.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown search type %q", domain.ErrInvalidQuery, req.Kind)
	}
	endpoint := string(req.Kind)

	u := c.baseURL + "/" + path + "?" + c.params(&req).Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(Provider, endpoint, "error").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s %s: %w: %w", Provider, endpoint, domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.UpstreamRequestDuration.WithLabelValues(Provider, endpoint).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestsTotal.WithLabelValues(Provider, endpoint, "error").Inc()
		return nil, fmt.Errorf("%s %s: http %d: %w", Provider, endpoint, resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	var body apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(Provider, endpoint, "error").Inc()
		return nil, fmt.Errorf("%s %s: decode response: %w: %w", Provider, endpoint, domain.ErrUpstreamUnavailable, err)
	}

	switch body.Status {
	case statusOK:
	case statusZeroResults:
		metrics.UpstreamRequestsTotal.WithLabelValues(Provider, endpoint, "success").Inc()
		return []raw.RemotePlace{}, nil
	default:
		metrics.UpstreamRequestsTotal.WithLabelValues(Provider, endpoint, "status_error").Inc()
		c.logger.Warn("places api returned non-OK status",
			zap.String("endpoint", endpoint),
			zap.String("status", body.Status),
			zap.String("message", body.ErrorMessage),
		)
		return nil, domain.NewUpstreamStatus(Provider, body.Status, body.ErrorMessage)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(Provider, endpoint, "success").Inc()
	return body.places(req.Kind), nil
}

func (c *Client) params(req *lookup.Request) url.Values {
	v := url.Values{}
	v.Set("key", c.apiKey)

	switch req.Kind {
	case lookup.TextSearch:
		v.Set("query", req.Query)
	case lookup.NearbySearch:
		if req.Query != "" {
			v.Set("keyword", req.Query)
		}
	case lookup.Autocomplete:
		v.Set("input", req.Query)
	case lookup.PlaceDetails:
		v.Set("place_id", req.Query)
		return v
	}

	if req.Location != nil {
		v.Set("location", formatLocation(*req.Location))
		v.Set("radius", strconv.FormatFloat(req.RadiusMeters, 'f', -1, 64))
	}
	if req.Kind != lookup.Autocomplete {
		v.Set("type", placeTypes)
	}
	return v
}

func formatLocation(p geo.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
