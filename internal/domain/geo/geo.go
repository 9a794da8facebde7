// Package geo holds spherical-earth helpers shared by the ranker and the
// nearby-cache index.
package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean radius of Earth used for Haversine distance.
const EarthRadiusMeters = 6_371_000.0

// Point is a WGS84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// NewPoint validates the coordinates and returns a Point.
func NewPoint(lat, lng float64) (Point, error) {
	if !ValidateCoordinates(lat, lng) {
		return Point{}, fmt.Errorf("coordinates out of range: lat=%v lng=%v", lat, lng)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// DistanceMeters returns the haversine distance between two points.
func (p Point) DistanceMeters(o Point) float64 {
	return Haversine(p.Lat, p.Lng, o.Lat, o.Lng)
}

// Haversine returns the great-circle distance in meters between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
// NaN fails both comparisons and is rejected.
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

// Contains reports whether p lies inside the box (edges inclusive).
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// BoundingBox returns the smallest lat/lng rectangle enclosing the spherical cap
// of radiusMeters around center. Caps crossing the antimeridian or touching a pole
// widen to the full longitude range.
func BoundingBox(center Point, radiusMeters float64) Box {
	ll := s2.LatLngFromDegrees(center.Lat, center.Lng)
	capArea := s2.CapFromCenterAngle(s2.PointFromLatLng(ll), s1.Angle(radiusMeters/EarthRadiusMeters))
	rect := capArea.RectBound()

	box := Box{
		MinLat: rect.Lo().Lat.Degrees(),
		MaxLat: rect.Hi().Lat.Degrees(),
		MinLng: rect.Lo().Lng.Degrees(),
		MaxLng: rect.Hi().Lng.Degrees(),
	}
	if rect.Lng.IsFull() || rect.Lng.IsInverted() {
		box.MinLng, box.MaxLng = -180, 180
	}
	return box
}
