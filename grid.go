package dem

import (
	"fmt"
	"math"
	"slices"
)

// A Grid is a raster stored as a sequence of rows.
type Grid [][]float32

// ToGrid returns a Grid of height rows of width values each, copied from the
// row-major values.
func ToGrid(values []float32, width, height int) (Grid, error) {
	if !shapeMatches(len(values), width, height) {
		return nil, fmt.Errorf("%w: %d values for %dx%d raster", ErrShapeMismatch, len(values), width, height)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d raster", ErrEmptyGrid, width, height)
	}
	return newGrid(slices.Clone(values), width, height), nil
}

// ToFlat returns the values of grid in row-major order.
func ToFlat(grid Grid) ([]float32, error) {
	_, cols, err := grid.rectDims()
	if err != nil {
		return nil, err
	}
	values := make([]float32, 0, len(grid)*cols)
	for _, row := range grid {
		values = append(values, row...)
	}
	return values, nil
}

// Dims returns the number of rows and the length of the first row of g.
func (g Grid) Dims() (int, int) {
	if len(g) == 0 {
		return 0, 0
	}
	return len(g), len(g[0])
}

// IsSquare returns whether g is rectangular with as many rows as columns.
func (g Grid) IsSquare() bool {
	rows, cols, err := g.rectDims()
	return err == nil && rows == cols
}

// Clone returns a deep copy of g.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	clone := make(Grid, len(g))
	for i, row := range g {
		clone[i] = slices.Clone(row)
	}
	return clone
}

// rectDims returns the dimensions of g, or ErrNonRectangularGrid if its rows
// differ in length.
func (g Grid) rectDims() (int, int, error) {
	rows, cols := g.Dims()
	for i, row := range g {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("%w: row %d has %d values, expected %d", ErrNonRectangularGrid, i, len(row), cols)
		}
	}
	return rows, cols, nil
}

// shapeMatches returns whether n values exactly fill a width x height raster.
func shapeMatches(n, width, height int) bool {
	switch {
	case width < 0 || height < 0:
		return false
	case width > 0 && height > math.MaxInt/width:
		return false
	default:
		return n == width*height
	}
}

// newGrid returns a Grid whose rows are consecutive width-sized slices of
// flat.
func newGrid(flat []float32, width, height int) Grid {
	grid := make(Grid, height)
	for i := range grid {
		grid[i] = flat[i*width : (i+1)*width : (i+1)*width]
	}
	return grid
}

