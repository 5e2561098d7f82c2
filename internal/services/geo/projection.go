// Package geo places stores on the simplified map and filters them by
// distance. The projection is a linear min/max rescale of latitude and
// longitude into percentages, not a map projection.
package geo

import (
	"math"
)

// Point is a latitude/longitude pair in degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Position is a placement in percent of the container, 0-100 per axis
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center is returned for every projection over an empty point set
var Center = Position{X: 50, Y: 50}

// Bounds is the bounding box of a point set
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// NewBounds computes the bounds of points. An empty set yields the
// +Inf/-Inf sentinels, which Valid reports as false.
func NewBounds(points []Point) Bounds {
	b := Bounds{
		MinLat: math.Inf(1),
		MaxLat: math.Inf(-1),
		MinLng: math.Inf(1),
		MaxLng: math.Inf(-1),
	}
	for _, p := range points {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}
	return b
}

// Valid reports whether the bounds were computed from at least one point
func (b Bounds) Valid() bool {
	return !math.IsInf(b.MinLat, 1) && !math.IsInf(b.MaxLat, -1) &&
		!math.IsInf(b.MinLng, 1) && !math.IsInf(b.MaxLng, -1)
}

// Project maps p into the bounds. X comes from longitude, Y from latitude.
// A zero range on an axis is treated as 1.
func (b Bounds) Project(p Point) Position {
	if !b.Valid() {
		return Center
	}

	latRange := b.MaxLat - b.MinLat
	if latRange == 0 {
		latRange = 1
	}
	lngRange := b.MaxLng - b.MinLng
	if lngRange == 0 {
		lngRange = 1
	}

	return Position{
		X: (p.Lng - b.MinLng) / lngRange * 100,
		Y: (p.Lat - b.MinLat) / latRange * 100,
	}
}

// ProjectAll projects every point against the bounds of the whole set
func ProjectAll(points []Point) []Position {
	b := NewBounds(points)
	out := make([]Position, len(points))
	for i, p := range points {
		out[i] = b.Project(p)
	}
	return out
}
