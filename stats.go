package dem

import "gonum.org/v1/gonum/floats"

// Stats summarizes the elevations of a DEM.
type Stats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Stats returns summary statistics of d's elevations. Renderers use the range
// to scale elevations.
func (d *NormalizedDEM) Stats() Stats {
	if len(d.Elevations) == 0 {
		return Stats{}
	}
	values := make([]float64, len(d.Elevations))
	for i, elevation := range d.Elevations {
		values[i] = float64(elevation)
	}
	return Stats{
		Min:  floats.Min(values),
		Max:  floats.Max(values),
		Mean: floats.Sum(values) / float64(len(values)),
	}
}
