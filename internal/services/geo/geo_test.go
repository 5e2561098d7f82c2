package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectEmptySetReturnsCenter(t *testing.T) {
	b := NewBounds(nil)
	assert.False(t, b.Valid())
	for _, p := range []Point{{0, 0}, {40.7, -74}, {-90, 180}} {
		assert.Equal(t, Center, b.Project(p))
		assert.Equal(t, Center, b.Project(p))
	}
	assert.Empty(t, ProjectAll(nil))
}

func TestProjectRescalesToPercent(t *testing.T) {
	points := []Point{
		{Lat: 40.7028, Lng: -74.016},
		{Lat: 40.7228, Lng: -73.996},
		{Lat: 40.7128, Lng: -74.006},
	}
	got := ProjectAll(points)
	require.Len(t, got, 3)

	assert.InDelta(t, 0, got[0].X, 1e-9)
	assert.InDelta(t, 0, got[0].Y, 1e-9)
	assert.InDelta(t, 100, got[1].X, 1e-9)
	assert.InDelta(t, 100, got[1].Y, 1e-9)
	assert.InDelta(t, 50, got[2].X, 1e-6)
	assert.InDelta(t, 50, got[2].Y, 1e-6)
}

func TestProjectSharedLatitudeCollapsesY(t *testing.T) {
	points := []Point{{Lat: 10, Lng: 1}, {Lat: 10, Lng: 2}, {Lat: 10, Lng: 3}}
	for _, pos := range ProjectAll(points) {
		assert.False(t, math.IsNaN(pos.X) || math.IsNaN(pos.Y))
		assert.Equal(t, 0.0, pos.Y)
	}
}

func TestProjectSinglePoint(t *testing.T) {
	got := ProjectAll([]Point{{Lat: 1, Lng: 1}})
	assert.Equal(t, []Position{{X: 0, Y: 0}}, got)
}

func TestProjectIsOrderIndependent(t *testing.T) {
	points := []Point{{1, 5}, {3, 2}, {-4, 7}, {2, 2}}
	reversed := []Point{points[3], points[2], points[1], points[0]}

	forward := ProjectAll(points)
	backward := ProjectAll(reversed)
	for i := range points {
		assert.Equal(t, forward[i], backward[len(points)-1-i])
	}
}

func TestDistance(t *testing.T) {
	nyc := Point{Lat: 40.7128, Lng: -74.006}
	assert.Equal(t, 0.0, Distance(nyc, nyc))

	// one degree of latitude is about 111.19 km
	assert.InDelta(t, 111.19, Distance(Point{0, 0}, Point{1, 0}), 0.01)
}

type place struct {
	name string
	at   Point
}

func (p place) DisplayName() string { return p.name }
func (p place) Location() Point     { return p.at }

func TestWithin(t *testing.T) {
	origin := Point{Lat: 40.7128, Lng: -74.006}
	places := []place{
		{"Downtown Superstore", Point{40.7128, -74.006}},
		{"Westside Market", Point{40.7138, -74.016}},
		{"Far Away Mart", Point{41.8781, -87.6298}},
	}

	assert.Len(t, Within(places, origin, 10, ""), 2)
	got := Within(places, origin, 10, "market")
	require.Len(t, got, 1)
	assert.Equal(t, "Westside Market", got[0].name)
	assert.Empty(t, Within(places, origin, 0.001, "westside"))
}
