package place

import (
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/careatlas/internal/domain/geo"
)

// Score weights.
const (
	weightName        = 10.0
	weightDescription = 5.0
	weightCategory    = 3.0
	weightVerified    = 2.0
	weightFeatured    = 5.0

	metersPerPenaltyPoint = 10_000.0
	maxDistancePenalty    = 5.0
)

// RankOptions parameterize scoring and truncation.
type RankOptions struct {
	Query      string
	Location   *geo.Point
	MaxResults int // <= 0 disables truncation
}

// Score computes the relevance score of r against the query and caller location.
func Score(r *Result, query string, location *geo.Point) float64 {
	q := strings.ToLower(query)
	score := 0.0

	if containsFold(r.Name, q) {
		score += weightName
	}
	if containsFold(r.Description, q) {
		score += weightDescription
	}
	if containsFold(r.Category, q) {
		score += weightCategory
	}
	if r.Rating != nil {
		score += *r.Rating
	}
	if r.Verified {
		score += weightVerified
	}
	if r.Featured {
		score += weightFeatured
	}
	if location != nil && r.Coordinates != nil {
		d := location.DistanceMeters(*r.Coordinates)
		score -= math.Min(maxDistancePenalty, d/metersPerPenaltyPoint)
	}
	return score
}

// Rank scores every result, sorts descending (ties keep input order) and
// truncates to opts.MaxResults. Input is not modified.
func Rank(results []Result, opts RankOptions) []Result {
	out := make([]Result, len(results))
	copy(out, results)

	for i := range out {
		s := Score(&out[i], opts.Query, opts.Location)
		out[i].RelevanceScore = &s
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].RelevanceScore > *out[j].RelevanceScore
	})

	if opts.MaxResults > 0 && len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

// containsFold expects needle already lower-cased.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
