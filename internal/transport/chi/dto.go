package chi

import (
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/place"
	domusage "github.com/kailas-cloud/careatlas/internal/domain/usage"
	searchuc "github.com/kailas-cloud/careatlas/internal/usecase/search"
)

// Error codes of the error envelope.
const (
	codeBadRequest         = "bad_request"
	codeInvalidQuery       = "invalid_query"
	codeGeolocationDenied  = "geolocation_denied"
	codeLocationNotFound   = "location_not_found"
	codeMissingCredentials = "missing_credentials"
	codeUpstreamError      = "upstream_error"
	codeUpstreamTimeout    = "upstream_timeout"
	codeSuperseded         = "superseded"
	codeInternalError      = "internal_error"
)

// --- Requests ---

type hybridSearchRequest struct {
	Query          string     `json:"query"`
	Location       *geo.Point `json:"location,omitempty"`
	Radius         float64    `json:"radius,omitempty"`
	Category       string     `json:"category,omitempty"`
	IncludeGoogle  *bool      `json:"includeGoogle,omitempty"`
	IncludeOSM     *bool      `json:"includeOSM,omitempty"`
	IncludeLocal   *bool      `json:"includeLocal,omitempty"`
	MaxResults     int        `json:"maxResults,omitempty"`
	SessionID      string     `json:"sessionId,omitempty"`
	LocationQuery  string     `json:"locationQuery,omitempty"`
	LocationStatus string     `json:"locationStatus,omitempty"`
}

type placesSearchRequest struct {
	Type     string     `json:"type,omitempty"`
	Query    string     `json:"query"`
	Location *geo.Point `json:"location,omitempty"`
	Radius   float64    `json:"radius,omitempty"`
	Category string     `json:"category,omitempty"`
}

type nearbyRequest struct {
	Location       *geo.Point `json:"location,omitempty"`
	LocationQuery  string     `json:"locationQuery,omitempty"`
	LocationStatus string     `json:"locationStatus,omitempty"`
	Radius         float64    `json:"radius,omitempty"`
	Category       string     `json:"category,omitempty"`
	SessionID      string     `json:"sessionId,omitempty"`
}

// catalogParams are the GET /v1/catalog query parameters.
type catalogParams struct {
	Query      *string  `form:"query"`
	Category   *string  `form:"category"`
	Location   *string  `form:"location"`
	Type       *string  `form:"type"`
	MinRating  *float64 `form:"minRating"`
	Telehealth *bool    `form:"telehealth"`
}

// usageParams are the GET /v1/usage query parameters.
type usageParams struct {
	Date *string `form:"date"`
}

// --- Responses ---

type errorResponse struct {
	Error        string      `json:"error"`
	Code         string      `json:"code"`
	Results      []resultDTO `json:"results"`
	TotalResults int         `json:"totalResults"`
}

type resultDTO struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Location       string     `json:"location"`
	Coordinates    *geo.Point `json:"coordinates,omitempty"`
	Website        string     `json:"website"`
	Phone          string     `json:"phone"`
	Rating         *float64   `json:"rating,omitempty"`
	ReviewCount    *int       `json:"reviewCount,omitempty"`
	Type           string     `json:"type"`
	Featured       bool       `json:"featured"`
	Verified       bool       `json:"verified"`
	Source         string     `json:"source"`
	RelevanceScore *float64   `json:"relevanceScore,omitempty"`
	DetailURL      string     `json:"detailUrl,omitempty"`
	Attribution    string     `json:"attribution,omitempty"`
	OpenNow        *bool      `json:"openNow,omitempty"`
	BusinessStatus string     `json:"businessStatus,omitempty"`
	Services       []string   `json:"services,omitempty"`
	Telehealth     bool       `json:"telehealth,omitempty"`
}

type sourceCountsDTO struct {
	Google int `json:"google"`
	OSM    int `json:"osm"`
	Local  int `json:"local"`
}

type sourceReportDTO struct {
	Source     string `json:"source"`
	Status     string `json:"status"`
	Count      int    `json:"count"`
	DurationMS int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

type hybridSearchResponse struct {
	Results        []resultDTO       `json:"results"`
	TotalResults   int               `json:"totalResults"`
	Sources        sourceCountsDTO   `json:"sources"`
	SearchStrategy string            `json:"searchStrategy"`
	SourceReports  []sourceReportDTO `json:"sourceReports"`
	ResponseTimeMS int64             `json:"responseTimeMs"`
	CacheHit       bool              `json:"cacheHit"`
	Location       *geo.Point        `json:"location,omitempty"`
}

type placesSearchResponse struct {
	Results        []resultDTO `json:"results"`
	TotalResults   int         `json:"totalResults"`
	CacheHit       bool        `json:"cacheHit"`
	ResponseTimeMS int64       `json:"responseTime"`
	Source         string      `json:"source"`
}

type nearbyResponse struct {
	Results      []resultDTO `json:"results"`
	TotalResults int         `json:"totalResults"`
	Category     string      `json:"category"`
	Location     geo.Point   `json:"location"`
}

type facetsDTO struct {
	Categories []string `json:"categories"`
	Locations  []string `json:"locations"`
}

type catalogResponse struct {
	Results      []resultDTO `json:"results"`
	TotalResults int         `json:"totalResults"`
	Facets       facetsDTO   `json:"facets"`
}

type usageEntryDTO struct {
	Endpoint      string  `json:"endpoint"`
	RequestCount  int64   `json:"requestCount"`
	EstimatedCost float64 `json:"estimatedCost"`
}

type usageResponse struct {
	Provider      string          `json:"provider"`
	Date          string          `json:"date"`
	Endpoints     []usageEntryDTO `json:"endpoints"`
	TotalRequests int64           `json:"totalRequests"`
	TotalCost     float64         `json:"totalCost"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// --- Converters ---

func resultToDTO(r *place.Result) resultDTO {
	return resultDTO{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		Category:       r.Category,
		Location:       r.LocationLabel,
		Coordinates:    r.Coordinates,
		Website:        r.Website,
		Phone:          r.Phone,
		Rating:         r.Rating,
		ReviewCount:    r.ReviewCount,
		Type:           string(r.Kind),
		Featured:       r.Featured,
		Verified:       r.Verified,
		Source:         string(r.Source),
		RelevanceScore: r.RelevanceScore,
		DetailURL:      r.DetailURL,
		Attribution:    r.Attribution,
		OpenNow:        r.OpenNow,
		BusinessStatus: r.BusinessStatus,
		Services:       r.Services,
		Telehealth:     r.Telehealth,
	}
}

func resultsToDTO(results []place.Result) []resultDTO {
	out := make([]resultDTO, len(results))
	for i := range results {
		out[i] = resultToDTO(&results[i])
	}
	return out
}

func hybridToDTO(resp *searchuc.Response) hybridSearchResponse {
	reports := make([]sourceReportDTO, len(resp.SourceReports))
	for i, r := range resp.SourceReports {
		reports[i] = sourceReportDTO{
			Source:     string(r.Source),
			Status:     string(r.Status),
			Count:      r.Count,
			DurationMS: r.Duration.Milliseconds(),
			Error:      r.Error,
		}
	}
	return hybridSearchResponse{
		Results:      resultsToDTO(resp.Results),
		TotalResults: resp.TotalResults,
		Sources: sourceCountsDTO{
			Google: resp.Sources.Google,
			OSM:    resp.Sources.OSM,
			Local:  resp.Sources.Local,
		},
		SearchStrategy: resp.SearchStrategy,
		SourceReports:  reports,
		ResponseTimeMS: resp.ResponseTime.Milliseconds(),
		CacheHit:       resp.CacheHit,
		Location:       resp.Location,
	}
}

func usageToDTO(r *domusage.Report) usageResponse {
	entries := r.Entries()
	out := make([]usageEntryDTO, len(entries))
	for i := range entries {
		out[i] = usageEntryDTO{
			Endpoint:      entries[i].Endpoint(),
			RequestCount:  entries[i].RequestCount(),
			EstimatedCost: entries[i].EstimatedCost(),
		}
	}
	return usageResponse{
		Provider:      r.Provider(),
		Date:          r.Date(),
		Endpoints:     out,
		TotalRequests: r.TotalRequests(),
		TotalCost:     r.TotalCost(),
	}
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefBool(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}
