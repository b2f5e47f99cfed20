package dem

import (
	"fmt"
	"math"
)

// metersPerDegreeLatitude is the length of one degree of latitude on a
// spherical Earth.
const metersPerDegreeLatitude = 111320.0

// minCosLatitude is the smallest cosine of the latitude for which longitude
// spans are computed.
const minCosLatitude = 1e-9

// A BoundingBox is a rectangle in geographic coordinates, in degrees.
type BoundingBox struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// NewBoundingBox returns the bounding box of the square of side sideMeters
// centered on center.
func NewBoundingBox(center GeoPoint, sideMeters float64) (BoundingBox, error) {
	if !(sideMeters > 0) || math.IsInf(sideMeters, 1) {
		return BoundingBox{}, fmt.Errorf("%w: %v", ErrInvalidSideLength, sideMeters)
	}
	if !(-90 <= center.Lat && center.Lat <= 90) {
		return BoundingBox{}, fmt.Errorf("%w: %v", ErrInvalidLatitude, center.Lat)
	}
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if cosLat < minCosLatitude {
		return BoundingBox{}, fmt.Errorf("%w: %v is too close to a pole", ErrInvalidLatitude, center.Lat)
	}

	if math.IsNaN(center.Lon) || math.IsInf(center.Lon, 0) {
		return BoundingBox{}, fmt.Errorf("%w: %v", ErrInvalidLongitude, center.Lon)
	}

	halfSide := sideMeters / 2
	dLat := halfSide / metersPerDegreeLatitude
	dLon := halfSide / (metersPerDegreeLatitude * cosLat)
	bbox := BoundingBox{
		South: center.Lat - dLat,
		North: center.Lat + dLat,
		West:  center.Lon - dLon,
		East:  center.Lon + dLon,
	}
	if !bbox.Valid() {
		return BoundingBox{}, fmt.Errorf("%w: %v is too small at %v, %v", ErrInvalidSideLength, sideMeters, center.Lat, center.Lon)
	}
	return bbox, nil
}

// Center returns b's center.
func (b BoundingBox) Center() GeoPoint {
	return GeoPoint{
		Lat: (b.South + b.North) / 2,
		Lon: (b.West + b.East) / 2,
	}
}

// Valid returns whether b has a positive extent on both axes.
func (b BoundingBox) Valid() bool {
	return b.South < b.North && b.West < b.East
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("south=%v north=%v west=%v east=%v", b.South, b.North, b.West, b.East)
}
