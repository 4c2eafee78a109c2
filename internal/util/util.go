// Package util holds small shared helpers.
package util

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DistanceMeters returns the great-circle distance between two coordinates.
// It is a display hint for courier alerts, not a routing result.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return geo.DistanceHaversine(
		orb.Point{lng1, lat1},
		orb.Point{lng2, lat2},
	)
}

// FormatDistance formats meters into a human readable distance (e.g., "850 m", "1.2 km").
func FormatDistance(meters float64) string {
	if meters < 0 {
		meters = 0
	}
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}

	return fmt.Sprintf("%.1f km", meters/1000)
}
