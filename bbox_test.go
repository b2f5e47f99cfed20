package dem_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/alecthomas/assert/v2"
	geo "github.com/paulmach/go.geo"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/twpayne/go-dem"
)

func TestNewBoundingBox(t *testing.T) {
	for _, tc := range []struct {
		name       string
		center     dem.GeoPoint
		sideMeters float64
		expected   dem.BoundingBox
	}{
		{
			name:       "sydney",
			center:     dem.GeoPoint{Lat: -33.752, Lon: 151.297},
			sideMeters: 20000,
			expected: dem.BoundingBox{
				South: -33.842,
				North: -33.662,
				West:  151.189,
				East:  151.405,
			},
		},
		{
			name:       "null_island",
			center:     dem.GeoPoint{},
			sideMeters: 2 * 111320,
			expected: dem.BoundingBox{
				South: -1,
				North: 1,
				West:  -1,
				East:  1,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := dem.NewBoundingBox(tc.center, tc.sideMeters)
			assert.NoError(t, err)
			assert.True(t, actual.Valid())
			assert.True(t, scalar.EqualWithinAbs(tc.expected.South, actual.South, 0.01))
			assert.True(t, scalar.EqualWithinAbs(tc.expected.North, actual.North, 0.01))
			assert.True(t, scalar.EqualWithinAbs(tc.expected.West, actual.West, 0.01))
			assert.True(t, scalar.EqualWithinAbs(tc.expected.East, actual.East, 0.01))
		})
	}
}

func TestNewBoundingBoxSymmetry(t *testing.T) {
	r := rand.New(rand.NewPCG(0, 0))
	for range 1024 {
		center := dem.GeoPoint{
			Lat: 170*r.Float64() - 85,
			Lon: 360*r.Float64() - 180,
		}
		sideMeters := 1 + 50000*r.Float64()
		bbox, err := dem.NewBoundingBox(center, sideMeters)
		assert.NoError(t, err)
		assert.True(t, bbox.Valid())
		assert.True(t, scalar.EqualWithinAbs(center.Lat, bbox.Center().Lat, 1e-9))
		assert.True(t, scalar.EqualWithinAbs(center.Lon, bbox.Center().Lon, 1e-9))

		shifted, err := dem.NewBoundingBox(dem.GeoPoint{Lat: center.Lat, Lon: -center.Lon}, sideMeters)
		assert.NoError(t, err)
		assert.True(t, scalar.EqualWithinAbs(bbox.North-bbox.South, shifted.North-shifted.South, 1e-12))
	}
}

func TestNewBoundingBoxGroundDistance(t *testing.T) {
	for _, center := range []dem.GeoPoint{
		{Lat: -33.752, Lon: 151.297},
		{Lat: -25.346, Lon: 131.036},
		{Lat: -20.253, Lon: 57.463},
		{Lat: 64.1466, Lon: -21.9426},
	} {
		bbox, err := dem.NewBoundingBox(center, 20000)
		assert.NoError(t, err)
		southNorth := geo.NewPoint(center.Lon, bbox.South).GeoDistanceFrom(geo.NewPoint(center.Lon, bbox.North), true)
		westEast := geo.NewPoint(bbox.West, center.Lat).GeoDistanceFrom(geo.NewPoint(bbox.East, center.Lat), true)
		assert.True(t, scalar.EqualWithinRel(20000, southNorth, 5e-3), "south-north %v", southNorth)
		assert.True(t, scalar.EqualWithinRel(20000, westEast, 5e-3), "west-east %v", westEast)
	}
}

func TestNewBoundingBoxErrors(t *testing.T) {
	for _, tc := range []struct {
		name        string
		center      dem.GeoPoint
		sideMeters  float64
		expectedErr error
	}{
		{
			name:        "north_pole",
			center:      dem.GeoPoint{Lat: 90},
			sideMeters:  1000,
			expectedErr: dem.ErrInvalidLatitude,
		},
		{
			name:        "south_pole",
			center:      dem.GeoPoint{Lat: -90},
			sideMeters:  1000,
			expectedErr: dem.ErrInvalidLatitude,
		},
		{
			name:        "out_of_range",
			center:      dem.GeoPoint{Lat: 91},
			sideMeters:  1000,
			expectedErr: dem.ErrInvalidLatitude,
		},
		{
			name:        "nan_latitude",
			center:      dem.GeoPoint{Lat: math.NaN()},
			sideMeters:  1000,
			expectedErr: dem.ErrInvalidLatitude,
		},
		{
			name:        "nan_longitude",
			center:      dem.GeoPoint{Lon: math.NaN()},
			sideMeters:  1000,
			expectedErr: dem.ErrInvalidLongitude,
		},
		{
			name:        "infinite_longitude",
			center:      dem.GeoPoint{Lon: math.Inf(-1)},
			sideMeters:  1000,
			expectedErr: dem.ErrInvalidLongitude,
		},
		{
			name:        "side_below_resolution",
			center:      dem.GeoPoint{Lat: 45, Lon: 10},
			sideMeters:  1e-10,
			expectedErr: dem.ErrInvalidSideLength,
		},
		{
			name:        "zero_side",
			sideMeters:  0,
			expectedErr: dem.ErrInvalidSideLength,
		},
		{
			name:        "negative_side",
			sideMeters:  -1,
			expectedErr: dem.ErrInvalidSideLength,
		},
		{
			name:        "infinite_side",
			sideMeters:  math.Inf(1),
			expectedErr: dem.ErrInvalidSideLength,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dem.NewBoundingBox(tc.center, tc.sideMeters)
			assert.IsError(t, err, tc.expectedErr)
		})
	}
}
