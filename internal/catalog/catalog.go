// Package catalog holds the curated local directory of providers, family
// organizations and educational resources compiled into the binary.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/careatlas/internal/domain/raw"
)

//go:embed catalog.yaml
var embedded []byte

type document struct {
	Providers     []raw.CatalogEntry `yaml:"providers"`
	Organizations []raw.CatalogEntry `yaml:"organizations"`
	Resources     []raw.CatalogEntry `yaml:"resources"`
}

// Catalog is an immutable, in-memory list of catalog entries.
type Catalog struct {
	entries []raw.CatalogEntry
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// MustLoad parses the embedded catalog or panics.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a catalog document. Entry ids must be unique.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	entries := make([]raw.CatalogEntry, 0, len(doc.Providers)+len(doc.Organizations)+len(doc.Resources))
	entries = appendKind(entries, doc.Providers, raw.KindProvider)
	entries = appendKind(entries, doc.Organizations, raw.KindOrganization)
	entries = appendKind(entries, doc.Resources, raw.KindResource)

	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		id := entries[i].ID
		if id == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", id)
		}
		seen[id] = struct{}{}
	}
	return &Catalog{entries: entries}, nil
}

func appendKind(dst, src []raw.CatalogEntry, kind string) []raw.CatalogEntry {
	for _, e := range src {
		if e.Kind == "" {
			e.Kind = kind
		}
		dst = append(dst, e)
	}
	return dst
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// All returns a copy of every entry in catalog order.
func (c *Catalog) All() []raw.CatalogEntry {
	out := make([]raw.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Search returns entries matching the free-text query (name, description,
// category, services, specialties) and the category substring. Empty
// arguments match everything.
func (c *Catalog) Search(query, category string) []raw.CatalogEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	cat := strings.ToLower(strings.TrimSpace(category))

	out := make([]raw.CatalogEntry, 0, len(c.entries))
	for i := range c.entries {
		e := &c.entries[i]
		if !matchesText(e, q) || !contains(e.Category, cat) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// FilterParams narrow a catalog browse. Zero values disable each filter.
type FilterParams struct {
	Query      string
	Category   string
	Location   string
	Kind       string
	MinRating  float64
	Telehealth bool
}

// Facets are the distinct values available for the category and location filters.
type Facets struct {
	Categories []string
	Locations  []string
}

// Filter applies params and returns the matching entries along with facets
// computed over the whole catalog.
func (c *Catalog) Filter(p FilterParams) ([]raw.CatalogEntry, Facets) {
	q := strings.ToLower(strings.TrimSpace(p.Query))
	cat := strings.ToLower(strings.TrimSpace(p.Category))
	loc := strings.ToLower(strings.TrimSpace(p.Location))

	out := make([]raw.CatalogEntry, 0, len(c.entries))
	for i := range c.entries {
		e := &c.entries[i]
		switch {
		case p.Kind != "" && e.Kind != p.Kind:
		case !matchesText(e, q):
		case !contains(e.Category, cat):
		case loc != "" && !matchesLocation(e, loc):
		case p.MinRating > 0 && (e.Rating == nil || *e.Rating < p.MinRating):
		case p.Telehealth && !e.Telehealth:
		default:
			out = append(out, *e)
		}
	}
	return out, c.facets()
}

func (c *Catalog) facets() Facets {
	categories := make(map[string]struct{})
	locations := make(map[string]struct{})
	for i := range c.entries {
		e := &c.entries[i]
		if e.Category != "" {
			categories[e.Category] = struct{}{}
		}
		if l := locationOf(e); l != "" {
			locations[l] = struct{}{}
		}
	}
	return Facets{Categories: sortedKeys(categories), Locations: sortedKeys(locations)}
}

func matchesText(e *raw.CatalogEntry, q string) bool {
	if q == "" {
		return true
	}
	if contains(e.DisplayName(), q) || contains(e.Description, q) || contains(e.Category, q) {
		return true
	}
	for _, s := range e.Services {
		if contains(s, q) {
			return true
		}
	}
	for _, s := range e.Specialties {
		if contains(s, q) {
			return true
		}
	}
	return false
}

func matchesLocation(e *raw.CatalogEntry, loc string) bool {
	return contains(e.City, loc) || contains(e.State, loc) || contains(e.Region, loc)
}

func locationOf(e *raw.CatalogEntry) string {
	switch {
	case e.City != "" && e.State != "":
		return e.City + ", " + e.State
	case e.Region != "":
		return e.Region
	default:
		return e.City
	}
}

// contains expects needle already lower-cased.
func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
