// Package geo holds great-circle distance and guess scoring.
package geo

import "math"

const earthRadiusKm = 6371.0

const (
	// MaxRoundScore is awarded for a guess on the exact spot.
	MaxRoundScore = 5000
	// scoreFalloffKm controls how fast the round score decays with distance.
	scoreFalloffKm = 2000.0
)

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLng := deg2rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// RoundScore converts a guess distance into points, MaxRoundScore at zero
// distance and decaying exponentially after that.
func RoundScore(distanceKm float64) int {
	if distanceKm < 0 {
		distanceKm = 0
	}
	return int(math.Round(MaxRoundScore * math.Exp(-distanceKm/scoreFalloffKm)))
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}
