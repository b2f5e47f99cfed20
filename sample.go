package dem

import "math"

// Sample returns the elevation at the texture coordinate (u, v) of d,
// interpolated bilinearly between texel centers as a texture sampler with
// linear filtering and clamp-to-edge addressing does. (0, 0) is the outer
// corner of the first texel of the first row. It returns NaN if d is empty
// or its elevations do not fill Size x Size texels.
func (d *NormalizedDEM) Sample(u, v float64) float64 {
	if d.Size <= 0 || len(d.Elevations) != d.Size*d.Size {
		return math.NaN()
	}
	size := float64(d.Size)
	x := min(max(u*size-0.5, 0), size-1)
	y := min(max(v*size-0.5, 0), size-1)
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := min(x0+1, d.Size-1), min(y0+1, d.Size-1)
	dx, dy := x-float64(x0), y-float64(y0)
	return 0 +
		d.at(x0, y0)*(1-dx)*(1-dy) +
		d.at(x1, y0)*dx*(1-dy) +
		d.at(x0, y1)*(1-dx)*dy +
		d.at(x1, y1)*dx*dy
}

// SampleBilinear returns the elevations of d at each texture coordinate in
// coords.
func SampleBilinear(d *NormalizedDEM, coords [][]float64) []float64 {
	result := make([]float64, len(coords))
	for i, coord := range coords {
		result[i] = d.Sample(coord[0], coord[1])
	}
	return result
}

func (d *NormalizedDEM) at(x, y int) float64 {
	return float64(d.Elevations[y*d.Size+x])
}
