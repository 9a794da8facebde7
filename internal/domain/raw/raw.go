// Package raw defines the source-specific record shapes returned by the source
// adapters. Records are transient: they exist only until normalization.
package raw

import "github.com/kailas-cloud/careatlas/internal/domain/geo"

// Source identifies the origin of a record.
type Source string

// Known sources, in fan-out order.
const (
	RemotePlaces  Source = "remote-places"
	PublicGeodata Source = "public-geodata"
	LocalStatic   Source = "local-static"
)

// Sources lists every source in fan-out order.
func Sources() []Source {
	return []Source{RemotePlaces, PublicGeodata, LocalStatic}
}

// Record is a closed set of tagged variants: RemotePlace, GeoElement, CatalogEntry.
type Record interface {
	Source() Source
	isRecord()
}

// RemotePlace is a record of the third-party places API. It is also the shape
// persisted in the places cache, hence the JSON tags.
type RemotePlace struct {
	PlaceID          string     `json:"place_id"`
	Name             string     `json:"name"`
	FormattedAddress string     `json:"formatted_address,omitempty"`
	Vicinity         string     `json:"vicinity,omitempty"`
	Location         *geo.Point `json:"location,omitempty"`
	Rating           *float64   `json:"rating,omitempty"`
	UserRatingsTotal *int       `json:"user_ratings_total,omitempty"`
	Types            []string   `json:"types,omitempty"`
	Website          string     `json:"website,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	OpenNow          *bool      `json:"open_now,omitempty"`
	BusinessStatus   string     `json:"business_status,omitempty"`
	Description      string     `json:"description,omitempty"` // autocomplete predictions only
}

// Source implements Record.
func (RemotePlace) Source() Source { return RemotePlaces }
func (RemotePlace) isRecord()      {}

// GeoElement is a tagged map element (node, way or relation) of the public geodata API.
// Center is already resolved: ways and relations take their first referenced node.
type GeoElement struct {
	Type     string
	ID       int64
	Center   *geo.Point
	Tags     map[string]string
	Category string // geodata category the element was requested for
}

// Source implements Record.
func (GeoElement) Source() Source { return PublicGeodata }
func (GeoElement) isRecord()      {}

// Catalog entry kinds.
const (
	KindProvider     = "provider"
	KindOrganization = "organization"
	KindResource     = "resource"
)

// Organization scopes.
const (
	ScopeNational = "national"
	ScopeLocal    = "local"
)

// CatalogEntry is a record of the local static catalog.
type CatalogEntry struct {
	ID          string     `yaml:"id"`
	Kind        string     `yaml:"kind"`
	Name        string     `yaml:"name"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Category    string     `yaml:"category"`
	City        string     `yaml:"city"`
	State       string     `yaml:"state"`
	Region      string     `yaml:"region"`
	Scope       string     `yaml:"scope"`
	Website     string     `yaml:"website"`
	Phone       string     `yaml:"phone"`
	Rating      *float64   `yaml:"rating"`
	ReviewCount *int       `yaml:"review_count"`
	Coordinates *geo.Point `yaml:"coordinates"`
	Featured    bool       `yaml:"featured"`
	Verified    bool       `yaml:"verified"`
	Telehealth  bool       `yaml:"telehealth"`
	Services    []string   `yaml:"services"`
	Specialties []string   `yaml:"specialties"`
	Tags        []string   `yaml:"tags"`
}

// Source implements Record.
func (CatalogEntry) Source() Source { return LocalStatic }
func (CatalogEntry) isRecord()      {}

// DisplayName returns Name, falling back to Title for resources.
func (e *CatalogEntry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Title
}
