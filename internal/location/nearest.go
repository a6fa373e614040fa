package location

import (
	"cmp"
	"math"
	"slices"

	"github.com/woozymasta/tailexit/internal/models"
)

const earthRadiusKm = 6371

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Ranked is a location group with its distance from an origin point.
type Ranked struct {
	Group      models.LocationGroup
	DistanceKm float64
}

// Distance calculates the great-circle distance between two points using the
// haversine formula, in kilometers.
func Distance(a, b Point) float64 {
	lat1, lon1 := radians(a.Latitude), radians(a.Longitude)
	lat2, lon2 := radians(b.Latitude), radians(b.Longitude)

	dPhi := lat2 - lat1
	dLambda := lon2 - lon1

	h := math.Pow(math.Sin(dPhi/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLambda/2), 2)

	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h)) * earthRadiusKm
}

func radians(d float64) float64 {
	return d * math.Pi / 180
}

// Nearest ranks the groups that have coordinates by their distance from origin.
// A limit of zero or less returns every ranked group.
func Nearest(origin Point, groups []models.LocationGroup, limit int) []Ranked {
	ranked := make([]Ranked, 0, len(groups))
	for _, g := range groups {
		if !g.Location.HasCoordinates() {
			continue
		}
		ranked = append(ranked, Ranked{
			Group:      g,
			DistanceKm: Distance(origin, Point{g.Location.Latitude, g.Location.Longitude}),
		})
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}
