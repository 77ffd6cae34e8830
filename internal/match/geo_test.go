package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineZeroDistance(t *testing.T) {
	p := Point{Lat: 37.7749, Lng: -122.4194}
	assert.Equal(t, 0.0, Haversine(p, p))
}

func TestHaversineOneDegreeLongitudeAtEquator(t *testing.T) {
	// One degree of longitude at the equator is roughly 69 miles.
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 0, Lng: 1}
	assert.InDelta(t, 69.0, Haversine(a, b), 1.0)
}

func TestHaversineReferencePair(t *testing.T) {
	// San Francisco to Los Angeles, about 347 miles great-circle.
	sf := Point{Lat: 37.7749, Lng: -122.4194}
	la := Point{Lat: 34.0522, Lng: -118.2437}
	assert.InDelta(t, 347.0, Haversine(sf, la), 2.0)
}

func TestHaversineSymmetric(t *testing.T) {
	a := Point{Lat: 40.7128, Lng: -74.0060}
	b := Point{Lat: 41.8781, Lng: -87.6298}
	assert.Equal(t, Haversine(a, b), Haversine(b, a))
}

func TestRadiusAreaCovers(t *testing.T) {
	center := Point{Lat: 0, Lng: 0}
	target := Point{Lat: 0, Lng: 1}
	dist := Haversine(center, target)

	area := RadiusArea{Center: center, RadiusMiles: dist}
	site := Site{Zip: "00000", Coord: &target}

	// Boundary is inclusive: distance exactly equal to the radius matches.
	assert.True(t, area.Covers(site))

	area.RadiusMiles = dist - 0.01
	assert.False(t, area.Covers(site))
}

func TestRadiusAreaFailsClosedWithoutCoordinates(t *testing.T) {
	area := RadiusArea{Center: Point{Lat: 37.7749, Lng: -122.4194}, RadiusMiles: 10000}
	assert.False(t, area.Covers(Site{Zip: "94102"}))
}

func TestZipSetAreaCovers(t *testing.T) {
	area := NewZipSetArea([]string{"94102", "94103"})

	assert.True(t, area.Covers(Site{Zip: "94102"}))
	assert.False(t, area.Covers(Site{Zip: "94110"}))
	// Exact string match, no normalization.
	assert.False(t, area.Covers(Site{Zip: " 94102"}))
}

func TestCoversDeterministic(t *testing.T) {
	coord := &Point{Lat: 37.7749, Lng: -122.4194}
	site := Site{Zip: "94102", Coord: coord}
	areas := []ServiceArea{
		NewZipSetArea([]string{"94102"}),
		RadiusArea{Center: Point{Lat: 37.8, Lng: -122.4}, RadiusMiles: 5},
	}

	for _, area := range areas {
		first := area.Covers(site)
		for i := 0; i < 10; i++ {
			require.Equal(t, first, area.Covers(site))
		}
	}
}
