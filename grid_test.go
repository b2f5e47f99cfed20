package dem_test

import (
	"math/rand/v2"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-dem"
)

func TestToGrid(t *testing.T) {
	values := []float32{1, 2, 3, 4, 5, 6}
	grid, err := dem.ToGrid(values, 3, 2)
	assert.NoError(t, err)
	assert.Equal(t, dem.Grid{{1, 2, 3}, {4, 5, 6}}, grid)

	rows, cols := grid.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.False(t, grid.IsSquare())

	grid[0][0] = 100
	assert.Equal(t, float32(1), values[0])
}

func TestToGridErrors(t *testing.T) {
	for _, tc := range []struct {
		name        string
		values      []float32
		width       int
		height      int
		expectedErr error
	}{
		{
			name:        "too_few",
			values:      []float32{1, 2, 3},
			width:       2,
			height:      2,
			expectedErr: dem.ErrShapeMismatch,
		},
		{
			name:        "too_many",
			values:      []float32{1, 2, 3, 4, 5},
			width:       2,
			height:      2,
			expectedErr: dem.ErrShapeMismatch,
		},
		{
			name:        "overflow",
			width:       1 << 62,
			height:      4,
			expectedErr: dem.ErrShapeMismatch,
		},
		{
			name:        "negative",
			values:      []float32{},
			width:       -1,
			height:      0,
			expectedErr: dem.ErrShapeMismatch,
		},
		{
			name:        "zero_width",
			values:      []float32{},
			width:       0,
			height:      3,
			expectedErr: dem.ErrEmptyGrid,
		},
		{
			name:        "empty",
			width:       0,
			height:      0,
			expectedErr: dem.ErrEmptyGrid,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dem.ToGrid(tc.values, tc.width, tc.height)
			assert.IsError(t, err, tc.expectedErr)
		})
	}
}

func TestToFlatNonRectangular(t *testing.T) {
	_, err := dem.ToFlat(dem.Grid{{1, 2}, {3}})
	assert.IsError(t, err, dem.ErrNonRectangularGrid)
}

func TestToFlatToGridRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(0, 0))
	for range 256 {
		width := 1 + r.IntN(32)
		height := 1 + r.IntN(32)
		values := make([]float32, width*height)
		for i := range values {
			values[i] = 2000*r.Float32() - 500
		}
		grid, err := dem.ToGrid(values, width, height)
		assert.NoError(t, err)
		actual, err := dem.ToFlat(grid)
		assert.NoError(t, err)
		assert.Equal(t, values, actual)
	}
}

func TestGridClone(t *testing.T) {
	grid := dem.Grid{{1, 2}, {3, 4}}
	clone := grid.Clone()
	assert.Equal(t, grid, clone)
	assert.True(t, clone.IsSquare())
	clone[1][1] = 0
	assert.Equal(t, float32(4), grid[1][1])
}
