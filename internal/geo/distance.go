package geo

import "math"

const earthRadiusMeters = 6_371_000

// Point is a WGS84 coordinate.
type Point struct {
	Lat, Lon float64
}

// Distance returns the great-circle distance in meters between two points.
func Distance(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Bounds returns the corners of a box enclosing the circle of radiusMeters
// around center. Used as a cheap prefilter before Distance.
func Bounds(center Point, radiusMeters float64) (min, max Point) {
	dLat := radiusMeters / earthRadiusMeters * (180 / math.Pi)
	dLon := dLat / math.Cos(radians(center.Lat))
	return Point{center.Lat - dLat, center.Lon - dLon}, Point{center.Lat + dLat, center.Lon + dLon}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
