package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the great-circle helpers.
const EarthRadiusMeters = 6371000.0

// Fix is a single geodetic reading from the location sensor.
type Fix struct {
	Latitude  float64 `json:"lat"`        // decimal degrees
	Longitude float64 `json:"lon"`        // decimal degrees
	Altitude  float64 `json:"altitude_m"` // metres
}

// Offset is a position in the local frame, relative to the reference fix.
// X points east, Y points north and Z is the altitude delta, all in metres.
type Offset struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the haversine great-circle distance between two fixes in metres.
// Altitude is ignored.
func Distance(from, to Fix) float64 {
	lat1 := toRadians(from.Latitude)
	lat2 := toRadians(to.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(to.Longitude - from.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// InitialBearing returns the forward azimuth from one fix to another in radians,
// measured clockwise from true north in the range [0, 2π). Identical points yield 0.
func InitialBearing(from, to Fix) float64 {
	lat1 := toRadians(from.Latitude)
	lat2 := toRadians(to.Latitude)
	dLon := toRadians(to.Longitude - from.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	if x == 0 && y == 0 {
		return 0
	}
	theta := math.Atan2(y, x)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}
