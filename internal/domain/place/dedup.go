package place

import "strings"

// DefaultPrefixLen is the number of location runes used in the identity key.
const DefaultPrefixLen = 20

// IdentityKey derives the dedup key: lower(name) + "_" + the first prefixLen runes
// of lower(locationLabel). Two distinct entities with the same name and similar
// address prefixes collapse; there is no geographic cross-check.
func IdentityKey(r *Result, prefixLen int) string {
	if prefixLen <= 0 {
		prefixLen = DefaultPrefixLen
	}
	loc := []rune(strings.ToLower(r.LocationLabel))
	if len(loc) > prefixLen {
		loc = loc[:prefixLen]
	}
	return strings.ToLower(r.Name) + "_" + string(loc)
}

// Dedup collapses results sharing an identity key. The first-seen record wins
// unless both are scored and a later one scores strictly higher, in which case
// it takes the earlier record's position. Input is not modified.
func Dedup(results []Result, prefixLen int) []Result {
	out := make([]Result, 0, len(results))
	seen := make(map[string]int, len(results))

	for i := range results {
		r := results[i]
		key := IdentityKey(&r, prefixLen)
		idx, dup := seen[key]
		if !dup {
			seen[key] = len(out)
			out = append(out, r)
			continue
		}
		kept := &out[idx]
		if kept.RelevanceScore != nil && r.RelevanceScore != nil && *r.RelevanceScore > *kept.RelevanceScore {
			out[idx] = r
		}
	}
	return out
}
