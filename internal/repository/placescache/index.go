package placescache

import (
	"sort"
	"sync"
	"time"

	"github.com/dhconnelly/rtreego"

	"github.com/kailas-cloud/careatlas/internal/domain/geo"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	tolerance   = 1e-9
	minSpan     = 1e-6
)

// Area selects cached entries by search center. A nil Center selects all.
type Area struct {
	Center       *geo.Point
	RadiusMeters float64
}

type indexed struct {
	key       string
	center    *geo.Point
	createdAt time.Time
	expiresAt time.Time
	rect      *rtreego.Rect
}

func (i *indexed) Bounds() *rtreego.Rect { return i.rect }

// index keeps entry metadata in memory; values stay in the store.
type index struct {
	mu    sync.Mutex
	tree  *rtreego.Rtree
	byKey map[string]*indexed
}

func newIndex() *index {
	return &index{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren),
		byKey: make(map[string]*indexed),
	}
}

func (x *index) add(e *Entry) {
	item := &indexed{
		key:       e.Key,
		center:    e.Params.Location,
		createdAt: e.CreatedAt,
		expiresAt: e.ExpiresAt,
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.removeLocked(e.Key)
	if item.center != nil {
		item.rect = rtreego.Point{item.center.Lat, item.center.Lng}.ToRect(tolerance)
		x.tree.Insert(item)
	}
	x.byKey[e.Key] = item
}

func (x *index) remove(key string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(key)
}

func (x *index) removeLocked(key string) {
	old, ok := x.byKey[key]
	if !ok {
		return
	}
	if old.rect != nil {
		x.tree.Delete(old)
	}
	delete(x.byKey, key)
}

func (x *index) len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.byKey)
}

// search returns keys of unexpired entries in the area, newest first.
// Expired entries met on the way are evicted.
func (x *index) search(a Area, now time.Time, limit int) []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	var candidates []*indexed
	if a.Center == nil {
		candidates = make([]*indexed, 0, len(x.byKey))
		for _, item := range x.byKey {
			candidates = append(candidates, item)
		}
	} else {
		box := geo.BoundingBox(*a.Center, a.RadiusMeters)
		rect, err := rtreego.NewRect(
			rtreego.Point{box.MinLat, box.MinLng},
			[]float64{max(box.MaxLat-box.MinLat, minSpan), max(box.MaxLng-box.MinLng, minSpan)},
		)
		if err != nil {
			return nil
		}
		for _, s := range x.tree.SearchIntersect(rect) {
			item, ok := s.(*indexed)
			if !ok || !box.Contains(*item.center) {
				continue
			}
			candidates = append(candidates, item)
		}
	}

	live := candidates[:0]
	for _, item := range candidates {
		if !now.Before(item.expiresAt) {
			x.removeLocked(item.key)
			continue
		}
		live = append(live, item)
	}

	sort.Slice(live, func(i, j int) bool {
		if !live[i].createdAt.Equal(live[j].createdAt) {
			return live[i].createdAt.After(live[j].createdAt)
		}
		return live[i].key < live[j].key
	})
	if limit > 0 && len(live) > limit {
		live = live[:limit]
	}

	keys := make([]string, len(live))
	for i, item := range live {
		keys[i] = item.key
	}
	return keys
}
