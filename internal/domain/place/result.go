// Package place holds the canonical search result and the pure pipeline
// stages over it: normalization, deduplication and ranking.
package place

import (
	"strings"

	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
)

// Kind classifies a result.
type Kind string

// Result kinds.
const (
	KindProvider     Kind = "provider"
	KindOrganization Kind = "organization"
	KindResource     Kind = "resource"
)

// Result is the canonical record every source is normalized into.
// RelevanceScore stays nil until the ranker scores the record.
type Result struct {
	ID             string
	Name           string
	Description    string
	Category       string
	LocationLabel  string
	Coordinates    *geo.Point
	Website        string
	Phone          string
	Rating         *float64
	ReviewCount    *int
	Kind           Kind
	Featured       bool
	Verified       bool
	Source         raw.Source
	RelevanceScore *float64

	DetailURL      string
	Attribution    string
	OpenNow        *bool
	BusinessStatus string
	Services       []string
	Telehealth     bool
}

// MatchesCategory reports whether the result category contains category
// (case-insensitive substring). An empty category matches everything.
func (r *Result) MatchesCategory(category string) bool {
	return containsFold(r.Category, strings.ToLower(category))
}
