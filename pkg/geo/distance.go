package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// RoadFactor approximates urban road distance from the straight line.
	RoadFactor = 1.35
)

// StraightLineKm is the great-circle (Haversine) distance in kilometres
// between two coordinates on a spherical earth.
func StraightLineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// RoadKm is the straight-line distance scaled by the road factor, rounded to
// two decimal places.
func RoadKm(lat1, lon1, lat2, lon2 float64) float64 {
	return math.Round(StraightLineKm(lat1, lon1, lat2, lon2)*RoadFactor*100) / 100
}
