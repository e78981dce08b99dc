package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCoordinate is returned when a latitude/longitude pair is out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a WGS 84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// InvalidCoordinate is the sentinel a location source reports before it has a fix.
var InvalidCoordinate = Coordinate{Lat: -180, Lon: -180}

// Valid reports whether c is a usable position.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	if c == InvalidCoordinate {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Validate returns ErrInvalidCoordinate wrapped with the offending values.
func (c Coordinate) Validate() error {
	if !c.Valid() {
		return fmt.Errorf("%w: (%f, %f)", ErrInvalidCoordinate, c.Lat, c.Lon)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lon)
}

// ProximityQuery is a standing request for every post within RadiusKm of Center.
// Queries are replaced, never mutated.
type ProximityQuery struct {
	Center   Coordinate `json:"center"`
	RadiusKm float64    `json:"radius_km"`
}

// RadiusMeters returns the query radius in meters.
func (q ProximityQuery) RadiusMeters() float64 {
	return q.RadiusKm * 1000
}
