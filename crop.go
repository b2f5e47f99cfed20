package dem

import "fmt"

// CropToSquare returns a new square grid cut from the center of grid. The
// longer axis is trimmed symmetrically; when an odd number of cells must be
// removed, the extra cell is removed from the trailing edge.
func CropToSquare(grid Grid) (Grid, error) {
	rows, cols, err := grid.rectDims()
	if err != nil {
		return nil, err
	}
	size := min(rows, cols)
	if size == 0 {
		return nil, fmt.Errorf("%w: %dx%d grid", ErrEmptyGrid, rows, cols)
	}

	rowStart, rowEnd := trimRange(rows, size)
	colStart, colEnd := trimRange(cols, size)

	flat := make([]float32, 0, size*size)
	for _, row := range grid[rowStart:rowEnd] {
		flat = append(flat, row[colStart:colEnd]...)
	}
	return newGrid(flat, size, size), nil
}

// trimRange returns the half-open range of length size centered in an axis of
// length n.
func trimRange(n, size int) (int, int) {
	removal := n - size
	start := removal / 2
	end := n - (removal+1)/2
	return start, end
}
