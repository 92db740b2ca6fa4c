package geospatial

import (
	"math"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Distance calculates the great-circle distance in meters between two points.
func Distance(a, b domain.Coordinate) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c * 1000 // meters
}

// BoundingBox returns a box around center with the given radius in meters.
func BoundingBox(center domain.Coordinate, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(center.Latitude)))

	return domain.Bounds{
		MinLat: center.Latitude - latDelta,
		MinLon: center.Longitude - lonDelta,
		MaxLat: center.Latitude + latDelta,
		MaxLon: center.Longitude + lonDelta,
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
