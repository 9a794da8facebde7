// Package overpass queries OpenStreetMap data through the Overpass and
// Nominatim public APIs.
package overpass

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/careatlas/internal/domain/geo"
)

// Category is one of the fixed geodata categories.
type Category string

// Geodata categories.
const (
	Therapists   Category = "Therapists & Specialists"
	Diagnostic   Category = "Diagnostic Centers"
	SupportGroup Category = "Support Groups"
	Educational  Category = "Educational Services"
	Recreational Category = "Recreational Programs"
	AdultService Category = "Adult Services"
)

// Categories lists every geodata category.
func Categories() []Category {
	return []Category{Therapists, Diagnostic, SupportGroup, Educational, Recreational, AdultService}
}

var filters = map[Category][]string{
	Therapists: {
		`nwr["healthcare"~"psychologist|therapy|counselling|speech_therapist|occupational_therapist"]`,
		`nwr["amenity"="clinic"]["healthcare"~".*"]`,
	},
	Diagnostic: {
		`nwr["healthcare"~"clinic|diagnostic_centre|hospital"]`,
		`nwr["amenity"="clinic"]`,
	},
	SupportGroup: {
		`nwr["social_facility"]["social_facility:for"~"autism|disability|special_needs", i]`,
		`nwr["amenity"="community_centre"]`,
	},
	Educational: {
		`nwr["amenity"="school"]["special_school"="yes"]`,
		`nwr["amenity"="school"]["school:for"~"special_needs|autism", i]`,
		`nwr["amenity"="college"]["special_needs"="yes"]`,
	},
	Recreational: {
		`nwr["leisure"="sports_centre"]`,
		`nwr["leisure"="playground"]["inclusive_playground"="yes"]`,
		`nwr["leisure"="playground"]["access:disabled"="yes"]`,
		`nwr["amenity"="community_centre"]`,
	},
	AdultService: {
		`nwr["social_facility"]["social_facility:for"~"adult|disability", i]`,
		`nwr["healthcare"~"clinic|therapy"]`,
	},
}

// keyword order matters: the first keyword contained in the text wins.
var categoryKeywords = []struct {
	keyword  string
	category Category
}{
	{"therapy", Therapists},
	{"therap", Therapists},
	{"medical", Diagnostic},
	{"diagnos", Diagnostic},
	{"support", SupportGroup},
	{"education", Educational},
	{"school", Educational},
	{"recreation", Recreational},
	{"adult", AdultService},
}

// ResolveCategory maps free text to a geodata category: exact name first
// (case-insensitive), then keywords, defaulting to Therapists.
func ResolveCategory(text string) Category {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Therapists
	}
	for _, c := range Categories() {
		if strings.ToLower(string(c)) == t {
			return c
		}
	}
	for _, k := range categoryKeywords {
		if strings.Contains(t, k.keyword) {
			return k.category
		}
	}
	return Therapists
}

// BuildQuery renders the Overpass QL for a category around a point.
func BuildQuery(center geo.Point, radiusMeters float64, category Category) string {
	fs, ok := filters[category]
	if !ok {
		fs = filters[Therapists]
	}

	around := "(around:" + strconv.FormatFloat(radiusMeters, 'f', 0, 64) + "," +
		strconv.FormatFloat(center.Lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(center.Lng, 'f', -1, 64) + ");"

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, f := range fs {
		b.WriteString("  ")
		b.WriteString(f)
		b.WriteString(around)
		b.WriteString("\n")
	}
	b.WriteString(");\nout body;\n>;\nout skel qt;")
	return b.String()
}
