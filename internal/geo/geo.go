// Package geo holds the spherical helpers used for nearby search and
// collection bounds.
package geo

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0088

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// Bounds is a latitude/longitude rectangle given by its corners.
type Bounds struct {
	rect s2.Rect
}

// NewBounds builds the rectangle spanned by the low and high corners.
func NewBounds(lowLat, lowLng, highLat, highLng float64) Bounds {
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(lowLat, lowLng))
	rect = rect.AddPoint(s2.LatLngFromDegrees(highLat, highLng))
	return Bounds{rect: rect}
}

// Contains reports whether the point lies inside the bounds.
func (b Bounds) Contains(lat, lng float64) bool {
	return b.rect.ContainsLatLng(s2.LatLngFromDegrees(lat, lng))
}

// Valid reports whether the coordinates are in range and not the 0,0
// "unknown" sentinel.
func Valid(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	return s2.LatLngFromDegrees(lat, lng).IsValid()
}
