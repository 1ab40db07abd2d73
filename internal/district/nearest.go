package district

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// earthRadiusM is the mean Earth radius used for centroid distances.
const earthRadiusM = 6371000.0

// Nearest returns the district whose curated centroid is closest to the given
// point, with the distance in kilometers. It is a diagnostic for fallback
// resolutions and never feeds back into Resolve.
func Nearest(lat, lon float64) (CanonicalDistrict, float64) {
	pt := geom.Coord{lon, lat}

	best := Other
	bestKM := math.Inf(1)
	for _, d := range load().Districts {
		c, ok := load().Centroids[d]
		if !ok {
			continue
		}
		km := centroidDistanceKM(pt, geom.Coord{c.Lon, c.Lat})
		if km < bestKM {
			best = d
			bestKM = km
		}
	}
	return best, bestKM
}

// centroidDistanceKM approximates great-circle distance via an
// equirectangular projection around the midpoint latitude. At city scale the
// error is negligible.
func centroidDistanceKM(a, b geom.Coord) float64 {
	midLat := (a[1] + b[1]) / 2 * math.Pi / 180
	scaled := geom.Coord{a[0] * math.Cos(midLat), a[1]}
	scaledB := geom.Coord{b[0] * math.Cos(midLat), b[1]}
	deg := xy.Distance(scaled, scaledB)
	return deg * math.Pi / 180 * earthRadiusM / 1000
}
