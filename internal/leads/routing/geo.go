// Package routing turns a priced lead into ranked offers: candidate
// filtering, geographic matching, scoring, and match creation.
package routing

import "math"

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// points given in degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Area is a circular service area.
type Area struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// NearestCoveringArea returns the distance to the closest area center whose
// radius covers the point. The second return is false when no area covers it.
// A provider with zero areas serves anywhere, which callers must handle
// before calling this.
func NearestCoveringArea(lat, lng float64, areas []Area) (float64, bool) {
	best := math.Inf(1)
	covered := false
	for _, area := range areas {
		d := Haversine(lat, lng, area.Lat, area.Lng)
		if d <= area.RadiusKm && d < best {
			best = d
			covered = true
		}
	}
	return best, covered
}
