package match

import "math"

const (
	earthRadiusKM = 6371.0
	milesPerKM    = 0.621371
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Site is a work order's location: a ZIP code plus optional coordinates.
// Coord is nil when the work order was created without latitude/longitude.
type Site struct {
	Zip   string
	Coord *Point
}

// ServiceArea is the geographic region a vendor claims to serve, either a
// set of ZIP codes or a center point with a radius in miles.
type ServiceArea interface {
	// Covers reports whether the area contains the given site. Radius areas
	// fail closed when the site has no coordinates.
	Covers(site Site) bool
}

// RadiusArea covers everything within RadiusMiles of Center (inclusive).
type RadiusArea struct {
	Center      Point
	RadiusMiles float64
}

func (a RadiusArea) Covers(site Site) bool {
	if site.Coord == nil {
		return false
	}
	return Haversine(a.Center, *site.Coord) <= a.RadiusMiles
}

// ZipSetArea covers sites whose ZIP code is in the set. Matching is exact
// string comparison.
type ZipSetArea struct {
	zips map[string]struct{}
}

// NewZipSetArea builds a ZipSetArea from a list of ZIP codes.
func NewZipSetArea(zipcodes []string) ZipSetArea {
	zips := make(map[string]struct{}, len(zipcodes))
	for _, z := range zipcodes {
		zips[z] = struct{}{}
	}
	return ZipSetArea{zips: zips}
}

func (a ZipSetArea) Covers(site Site) bool {
	_, ok := a.zips[site.Zip]
	return ok
}

// Haversine returns the great-circle distance between two points in miles.
func Haversine(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h)) * milesPerKM
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
