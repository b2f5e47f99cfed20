// Package dem prepares digital elevation model rasters for terrain
// rendering. It crops rasters to squares, estimates water depth, and
// flattens the result into a row-major float32 texture payload.
package dem

import "errors"

var (
	ErrInvalidLatitude    = errors.New("invalid latitude")
	ErrInvalidLongitude   = errors.New("invalid longitude")
	ErrInvalidSideLength  = errors.New("invalid side length")
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrNonRectangularGrid = errors.New("non-rectangular grid")
	ErrEmptyGrid          = errors.New("empty grid")
	ErrInvalidSteps       = errors.New("invalid number of steps")
)

// A GeoPoint is a geographic coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// A RawRaster is a row-major raster as decoded from a raster file.
type RawRaster struct {
	Values []float32
	Width  int
	Height int
}

// A NormalizedDEM is a square row-major elevation grid ready to be used as a
// single-channel float texture of Size x Size texels.
type NormalizedDEM struct {
	Elevations []float32
	Size       int
}
