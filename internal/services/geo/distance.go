package geo

import (
	"math"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by Distance
const EarthRadiusKm = 6371.0

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the great-circle distance between a and b in kilometres
func Distance(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Pow(math.Sin(dLng/2), 2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Located is anything with a name and a position
type Located interface {
	DisplayName() string
	Location() Point
}

// Within keeps the entries whose name contains search (case-insensitive)
// and that lie no further than radiusKm from origin.
func Within[T Located](entries []T, origin Point, radiusKm float64, search string) []T {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		if needle != "" && !strings.Contains(strings.ToLower(e.DisplayName()), needle) {
			continue
		}
		if Distance(origin, e.Location()) <= radiusKm {
			out = append(out, e)
		}
	}
	return out
}
