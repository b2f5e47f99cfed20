package dem

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Default depth estimation parameters.
const (
	DefaultDepthDecay float32 = -1
	DefaultDepthSteps         = 5
)

// EstimateDepth returns a copy of grid in which cells with an elevation of
// exactly zero are given estimated negative depths.
//
// Each of the maxSteps rounds reads a snapshot of the previous round. A zero
// cell takes the minimum of its current value and neighbor+decayPerStep over
// its non-land 4-connected neighbors. Land cells, with positive elevations,
// never change and never contribute to their neighbors.
func EstimateDepth(grid Grid, decayPerStep float32, maxSteps int) (Grid, error) {
	return EstimateDepthParallel(grid, decayPerStep, maxSteps, 1)
}

// EstimateDepthParallel is like EstimateDepth but splits each round into
// blocks of rows processed by up to workers goroutines. All blocks of a round
// complete before the next round starts, so the result is identical to
// EstimateDepth's.
func EstimateDepthParallel(grid Grid, decayPerStep float32, maxSteps, workers int) (Grid, error) {
	rows, cols, err := grid.rectDims()
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: %dx%d grid", ErrEmptyGrid, rows, cols)
	}
	if maxSteps < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSteps, maxSteps)
	}
	workers = max(1, min(workers, rows))

	result := grid.Clone()
	temp := grid.Clone()
	blockSize := max(1, rows/(4*workers))
	for range maxSteps {
		if workers == 1 {
			relaxRows(result, temp, decayPerStep, 0, rows)
		} else {
			var g errgroup.Group
			g.SetLimit(workers)
			for start := 0; start < rows; start += blockSize {
				end := min(start+blockSize, rows)
				g.Go(func() error {
					relaxRows(result, temp, decayPerStep, start, end)
					return nil
				})
			}
			_ = g.Wait() // relaxRows does not fail.
		}
		result, temp = temp, result
	}
	return result, nil
}

// relaxRows computes rows [start, end) of next from current. Every row in
// the range is fully rewritten.
func relaxRows(current, next Grid, decay float32, start, end int) {
	rows, cols := len(current), len(current[0])
	for i := start; i < end; i++ {
		copy(next[i], current[i])
		for j := range cols {
			if current[i][j] != 0 {
				continue
			}
			value := next[i][j]
			if i > 0 {
				value = relaxNeighbor(value, current[i-1][j], decay)
			}
			if i < rows-1 {
				value = relaxNeighbor(value, current[i+1][j], decay)
			}
			if j > 0 {
				value = relaxNeighbor(value, current[i][j-1], decay)
			}
			if j < cols-1 {
				value = relaxNeighbor(value, current[i][j+1], decay)
			}
			next[i][j] = value
		}
	}
}

func relaxNeighbor(value, neighbor, decay float32) float32 {
	if neighbor > 0 {
		return value
	}
	return min(value, neighbor+decay)
}
