// Package geo provides the small amount of spherical geometry the discovery
// engine needs: point distance and proximity bounds around an origin.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/whimapp/discovery-cli/internal/model"
)

const earthRadiusMeters = 6371000.0

// Coord returns the go-geom coordinate (x=lng, y=lat) for a LatLng.
func Coord(p model.LatLng) geom.Coord {
	return geom.Coord{p.Lng, p.Lat}
}

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(a, b model.LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// BoundsAround returns a bounding box covering a circle of the given radius
// centred on origin. Used as a cheap prefilter before exact distance checks.
func BoundsAround(origin model.LatLng, radiusMeters float64) *geom.Bounds {
	dLat := radiusMeters / earthRadiusMeters * 180 / math.Pi
	cos := math.Cos(origin.Lat * math.Pi / 180)
	if cos < 1e-6 {
		cos = 1e-6
	}
	dLng := dLat / cos

	b := geom.NewBounds(geom.XY)
	b.Set(origin.Lng-dLng, origin.Lat-dLat, origin.Lng+dLng, origin.Lat+dLat)
	return b
}

// WithinRadius reports whether p lies within radiusMeters of origin, using the
// bounding box as a prefilter before the exact spherical check.
func WithinRadius(origin, p model.LatLng, radiusMeters float64) bool {
	if !BoundsAround(origin, radiusMeters).OverlapsPoint(geom.XY, Coord(p)) {
		return false
	}
	return DistanceMeters(origin, p) <= radiusMeters
}
