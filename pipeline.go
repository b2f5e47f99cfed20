package dem

import (
	"fmt"
	"math"
	"time"
)

// A Pipeline normalizes raw rasters into square DEMs.
type Pipeline struct {
	depthDecay float32
	depthSteps int
	workers    int
	metrics    bool
}

// A PipelineOption sets an option on a Pipeline.
type PipelineOption func(*Pipeline)

var defaultPipeline = NewPipeline()

// NewPipeline returns a new Pipeline with the given options.
func NewPipeline(options ...PipelineOption) *Pipeline {
	p := &Pipeline{
		depthDecay: DefaultDepthDecay,
		depthSteps: DefaultDepthSteps,
		workers:    1,
		metrics:    true,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func WithDepthDecay(depthDecay float32) PipelineOption {
	return func(p *Pipeline) {
		p.depthDecay = depthDecay
	}
}

func WithDepthSteps(depthSteps int) PipelineOption {
	return func(p *Pipeline) {
		p.depthSteps = depthSteps
	}
}

// WithWorkers sets the number of goroutines used for depth estimation.
func WithWorkers(workers int) PipelineOption {
	return func(p *Pipeline) {
		p.workers = workers
	}
}

// WithMetrics sets whether p records Prometheus metrics.
func WithMetrics(metrics bool) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// Normalize normalizes raw with the default pipeline.
func Normalize(raw RawRaster, applyDepth bool) (*NormalizedDEM, error) {
	return defaultPipeline.Normalize(raw, applyDepth)
}

// Normalize converts raw into a square DEM, estimating water depths if
// applyDepth is true. raw is not modified.
func (p *Pipeline) Normalize(raw RawRaster, applyDepth bool) (*NormalizedDEM, error) {
	dem, err := p.normalize(raw, applyDepth)
	if p.metrics {
		pipelineRuns.Inc()
		if err != nil {
			pipelineFailures.WithLabelValues(errorKind(err)).Inc()
		}
	}
	return dem, err
}

func (p *Pipeline) normalize(raw RawRaster, applyDepth bool) (*NormalizedDEM, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	grid, err := ToGrid(raw.Values, raw.Width, raw.Height)
	if err != nil {
		return nil, err
	}

	grid, err = CropToSquare(grid)
	if err != nil {
		return nil, err
	}

	if applyDepth {
		start := time.Now()
		grid, err = EstimateDepthParallel(grid, p.depthDecay, p.depthSteps, p.workers)
		if err != nil {
			return nil, err
		}
		if p.metrics {
			depthEstimationSeconds.Observe(time.Since(start).Seconds())
		}
	}

	elevations, err := ToFlat(grid)
	if err != nil {
		return nil, err
	}
	return &NormalizedDEM{
		Elevations: elevations,
		Size:       len(grid),
	}, nil
}

// Validate returns an error if r's values are inconsistent with its
// dimensions or contain non-finite samples.
func (r RawRaster) Validate() error {
	if !shapeMatches(len(r.Values), r.Width, r.Height) {
		return fmt.Errorf("%w: %d values for %dx%d raster", ErrShapeMismatch, len(r.Values), r.Width, r.Height)
	}
	if r.Width == 0 || r.Height == 0 {
		return fmt.Errorf("%w: %dx%d raster", ErrEmptyGrid, r.Width, r.Height)
	}
	for i, value := range r.Values {
		if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
			return fmt.Errorf("%w: non-finite sample %v at (%d, %d)", ErrShapeMismatch, value, i%r.Width, i/r.Width)
		}
	}
	return nil
}
