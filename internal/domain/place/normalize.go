package place

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
)

// Normalization failures. Records failing normalization are dropped, never propagated.
var (
	ErrMissingName   = errors.New("record has no name")
	ErrMissingID     = errors.New("record has no identifier")
	ErrUnknownRecord = errors.New("unknown record variant")
)

// DefaultCategory is assigned to remote places whose type tags map to nothing.
const DefaultCategory = "Healthcare Provider"

// DefaultGeodataCategory is used when a geo element carries no requested category.
const DefaultGeodataCategory = "Therapists & Specialists"

const (
	addressUnavailable = "Address not available"
	osmElementURL      = "https://www.openstreetmap.org/%s/%d"

	// AttributionGooglePlaces labels remote-places results.
	AttributionGooglePlaces = "Google Places"
	// AttributionOverpass labels public-geodata results.
	AttributionOverpass = "OpenStreetMap (Overpass)"
)

// typeCategories is consulted in the order of the place's own type list; first hit wins.
var typeCategories = map[string]string{
	"doctor":          "Medical Care",
	"hospital":        "Medical Care",
	"health":          "Medical Care",
	"physiotherapist": "Therapy Services",
	"psychologist":    "Mental Health",
	"establishment":   "Healthcare Provider",
	"school":          "Education",
	"university":      "Education",
	"library":         "Education",
	"gym":             "Recreation",
	"park":            "Recreation",
}

// CategoryForTypes maps remote place type tags to a category.
func CategoryForTypes(types []string) string {
	for _, t := range types {
		if c, ok := typeCategories[t]; ok {
			return c
		}
	}
	return DefaultCategory
}

// Normalize converts one raw record into a canonical result.
func Normalize(rec raw.Record) (Result, error) {
	var (
		res Result
		err error
	)
	switch r := rec.(type) {
	case raw.RemotePlace:
		res, err = fromRemotePlace(&r)
	case *raw.RemotePlace:
		res, err = fromRemotePlace(r)
	case raw.GeoElement:
		res, err = fromGeoElement(&r)
	case *raw.GeoElement:
		res, err = fromGeoElement(r)
	case raw.CatalogEntry:
		res, err = fromCatalogEntry(&r)
	case *raw.CatalogEntry:
		res, err = fromCatalogEntry(r)
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownRecord, rec)
	}
	if err != nil {
		return Result{}, err
	}
	sanitize(&res)
	return res, nil
}

// NormalizeAll normalizes a batch, skipping failures. onDrop (optional) observes
// every dropped record.
func NormalizeAll(recs []raw.Record, onDrop func(raw.Record, error)) []Result {
	out := make([]Result, 0, len(recs))
	for _, rec := range recs {
		res, err := Normalize(rec)
		if err != nil {
			if onDrop != nil {
				onDrop(rec, err)
			}
			continue
		}
		out = append(out, res)
	}
	return out
}

func fromRemotePlace(p *raw.RemotePlace) (Result, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Result{}, ErrMissingName
	}
	if p.PlaceID == "" {
		return Result{}, ErrMissingID
	}

	address := p.FormattedAddress
	if address == "" {
		address = p.Vicinity
	}

	description := p.Description
	if description == "" {
		description = strings.Join(p.Types, ", ")
		if description == "" {
			description = DefaultCategory
		}
		if address != "" {
			description += " in " + address
		}
	}

	return Result{
		ID:             qualify(raw.RemotePlaces, p.PlaceID),
		Name:           name,
		Description:    description,
		Category:       CategoryForTypes(p.Types),
		LocationLabel:  address,
		Coordinates:    p.Location,
		Website:        p.Website,
		Phone:          p.Phone,
		Rating:         p.Rating,
		ReviewCount:    p.UserRatingsTotal,
		Kind:           KindProvider,
		Verified:       true,
		Source:         raw.RemotePlaces,
		Attribution:    AttributionGooglePlaces,
		OpenNow:        p.OpenNow,
		BusinessStatus: p.BusinessStatus,
	}, nil
}

func fromGeoElement(e *raw.GeoElement) (Result, error) {
	name := strings.TrimSpace(e.Tags["name"])
	if name == "" {
		name = strings.TrimSpace(e.Tags["operator"])
	}
	if name == "" {
		return Result{}, ErrMissingName
	}
	if e.Type == "" || e.ID == 0 {
		return Result{}, ErrMissingID
	}

	category := e.Category
	if category == "" {
		category = DefaultGeodataCategory
	}

	address := geoAddress(e.Tags)
	elementID := e.Type + "-" + strconv.FormatInt(e.ID, 10)

	return Result{
		ID:            qualify(raw.PublicGeodata, elementID),
		Name:          name,
		Description:   category + " in " + address,
		Category:      category,
		LocationLabel: address,
		Coordinates:   e.Center,
		Website:       firstTag(e.Tags, "website", "contact:website"),
		Phone:         firstTag(e.Tags, "phone", "contact:phone"),
		Kind:          KindProvider,
		Source:        raw.PublicGeodata,
		DetailURL:     fmt.Sprintf(osmElementURL, e.Type, e.ID),
		Attribution:   AttributionOverpass,
		Services:      splitTagList(e.Tags["healthcare:speciality"]),
	}, nil
}

func fromCatalogEntry(c *raw.CatalogEntry) (Result, error) {
	name := strings.TrimSpace(c.DisplayName())
	if name == "" {
		return Result{}, ErrMissingName
	}
	if c.ID == "" {
		return Result{}, ErrMissingID
	}

	res := Result{
		ID:          qualify(raw.LocalStatic, c.ID),
		Name:        name,
		Description: c.Description,
		Category:    c.Category,
		Coordinates: c.Coordinates,
		Website:     c.Website,
		Phone:       c.Phone,
		Rating:      c.Rating,
		ReviewCount: c.ReviewCount,
		Featured:    c.Featured,
		Verified:    c.Verified,
		Source:      raw.LocalStatic,
		Services:    c.Services,
		Telehealth:  c.Telehealth,
	}

	switch c.Kind {
	case raw.KindOrganization:
		res.Kind = KindOrganization
		res.LocationLabel = organizationLocation(c.Scope)
	case raw.KindResource:
		res.Kind = KindResource
		res.LocationLabel = "Online"
		res.Verified = true
	default:
		res.Kind = KindProvider
		res.LocationLabel = providerLocation(c)
	}
	return res, nil
}

func providerLocation(c *raw.CatalogEntry) string {
	switch {
	case c.City != "" && c.State != "":
		return c.City + ", " + c.State
	case c.Region != "":
		return c.Region
	case c.City != "":
		return c.City
	default:
		return c.State
	}
}

func organizationLocation(scope string) string {
	switch scope {
	case raw.ScopeNational:
		return "Nationwide"
	case raw.ScopeLocal:
		return "Regional"
	default:
		return "Online"
	}
}

// sanitize clears values that would corrupt ranking: bad coordinates, out-of-range
// ratings and negative review counts. The record itself is kept.
func sanitize(r *Result) {
	if r.Coordinates != nil && !geo.ValidateCoordinates(r.Coordinates.Lat, r.Coordinates.Lng) {
		r.Coordinates = nil
	}
	if r.Rating != nil {
		v := *r.Rating
		switch {
		case math.IsNaN(v):
			r.Rating = nil
		case v < 0:
			v = 0
			r.Rating = &v
		case v > 5:
			v = 5
			r.Rating = &v
		}
	}
	if r.ReviewCount != nil && *r.ReviewCount < 0 {
		r.ReviewCount = nil
	}
}

func qualify(src raw.Source, id string) string {
	return string(src) + ":" + id
}

func geoAddress(tags map[string]string) string {
	parts := make([]string, 0, 4)
	for _, k := range []string{"addr:housenumber", "addr:street", "addr:city", "addr:state"} {
		if v := strings.TrimSpace(tags[k]); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return addressUnavailable
	}
	return strings.Join(parts, " ")
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func splitTagList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
