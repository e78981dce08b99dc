package geospatial

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/samirrijal/snapmap/internal/core/domain"
)

// CacheCellLevel is the S2 level used to bucket query centers (~150m cells).
const CacheCellLevel = 16

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(a, b domain.Coordinate) float64 {
	return geo.DistanceHaversine(toPoint(a), toPoint(b))
}

// Within reports whether p lies inside the query's radius.
func Within(q domain.ProximityQuery, p domain.Coordinate) bool {
	return DistanceMeters(q.Center, p) <= q.RadiusMeters()
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(center domain.Coordinate, radiusMeters float64) (min, max domain.Coordinate) {
	b := geo.NewBoundAroundPoint(toPoint(center), radiusMeters)
	return domain.Coordinate{Lat: b.Min.Lat(), Lon: b.Min.Lon()},
		domain.Coordinate{Lat: b.Max.Lat(), Lon: b.Max.Lon()}
}

// CellToken returns the S2 cell token containing c at the given level.
// Nearby centers share a token, which makes it a stable cache key.
func CellToken(c domain.Coordinate, level int) string {
	cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon)).Parent(level)
	return cell.ToToken()
}

func toPoint(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}
