package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain"
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
	"github.com/kailas-cloud/careatlas/internal/metrics"
)

// Provider labels Overpass metrics and errors.
const Provider = "overpass"

// DefaultMaxResults caps the number of elements returned by Search.
const DefaultMaxResults = 50

const maxBodyBytes = 16 << 20

// Config holds the geodata client settings.
type Config struct {
	OverpassURL  string
	NominatimURL string
	UserAgent    string
	Timeout      time.Duration
	MaxResults   int
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Client talks to Overpass (search) and Nominatim (geocoding).
type Client struct {
	http         *http.Client
	overpassURL  string
	nominatimURL string
	userAgent    string
	maxResults   int
	logger       *zap.Logger
}

// NewClient creates a geodata client.
func NewClient(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:         hc,
		overpassURL:  cfg.OverpassURL,
		nominatimURL: strings.TrimRight(cfg.NominatimURL, "/"),
		userAgent:    cfg.UserAgent,
		maxResults:   maxResults,
		logger:       logger,
	}
}

type element struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   *float64          `json:"lat,omitempty"`
	Lon   *float64          `json:"lon,omitempty"`
	Nodes []int64           `json:"nodes,omitempty"`
	Tags  map[string]string `json:"tags,omitempty"`
}

type response struct {
	Elements []element `json:"elements"`
}

// Search returns tagged elements of the category around center.
func (c *Client) Search(ctx context.Context, center geo.Point, radiusMeters float64, category Category) ([]raw.GeoElement, error) {
	ql := BuildQuery(center, radiusMeters, category)

	form := url.Values{"data": {ql}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.overpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var body response
	if err := c.do(req, "interpreter", &body); err != nil {
		return nil, err
	}
	return c.resolve(body.Elements, category), nil
}

// resolve keeps tagged nodes, ways and relations; elements without their own
// coordinates take the position of their first referenced node.
func (c *Client) resolve(elements []element, category Category) []raw.GeoElement {
	nodes := make(map[int64]*element, len(elements))
	for i := range elements {
		if elements[i].Type == "node" {
			nodes[elements[i].ID] = &elements[i]
		}
	}

	out := make([]raw.GeoElement, 0, min(len(elements), c.maxResults))
	for i := range elements {
		el := &elements[i]
		if len(el.Tags) == 0 {
			continue
		}
		switch el.Type {
		case "node", "way", "relation":
		default:
			continue
		}

		center := coordinates(el)
		if center == nil && len(el.Nodes) > 0 {
			if n, ok := nodes[el.Nodes[0]]; ok {
				center = coordinates(n)
			}
		}

		out = append(out, raw.GeoElement{
			Type:     el.Type,
			ID:       el.ID,
			Center:   center,
			Tags:     el.Tags,
			Category: string(category),
		})
		if len(out) == c.maxResults {
			break
		}
	}
	return out
}

func coordinates(el *element) *geo.Point {
	if el.Lat == nil || el.Lon == nil {
		return nil
	}
	return &geo.Point{Lat: *el.Lat, Lng: *el.Lon}
}

func (c *Client) do(req *http.Request, endpoint string, dest any) error {
	provider := Provider
	if endpoint == "geocode" {
		provider = "nominatim"
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(provider, endpoint, "error").Inc()
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %w", provider, endpoint, domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.UpstreamRequestDuration.WithLabelValues(provider, endpoint).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestsTotal.WithLabelValues(provider, endpoint, "status_error").Inc()
		c.logger.Warn("geodata api returned non-OK status",
			zap.String("provider", provider),
			zap.Int("status", resp.StatusCode),
		)
		return domain.NewUpstreamStatus(provider, resp.Status, "")
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dest); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(provider, endpoint, "error").Inc()
		return fmt.Errorf("%s %s: decode response: %w: %w", provider, endpoint, domain.ErrUpstreamUnavailable, err)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(provider, endpoint, "success").Inc()
	return nil
}
