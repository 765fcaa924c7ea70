package utils

import (
	"math"
)

const earthRadiusKm = 6371

// HaversineDistance returns the great-circle distance between two points
// in kilometers.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// IsWithinRadius checks if a point lies within radiusKm of a center point
func IsWithinRadius(centerLat, centerLng, pointLat, pointLng, radiusKm float64) bool {
	return HaversineDistance(centerLat, centerLng, pointLat, pointLng) <= radiusKm
}

// CalculateETA estimates minutes to arrival from distance and average speed.
// distance in kilometers, averageSpeed in km/h.
func CalculateETA(distanceKm, averageSpeedKmh float64) int {
	if averageSpeedKmh <= 0 {
		averageSpeedKmh = 30 // city traffic default
	}

	etaMinutes := int(distanceKm / averageSpeedKmh * 60)
	if etaMinutes < 1 {
		etaMinutes = 1
	}

	return etaMinutes
}

// ValidCoordinates reports whether lat/lng form a plausible WGS84 point.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
