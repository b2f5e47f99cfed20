package dem

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dem_pipeline_runs_total",
		Help: "The total number of pipeline runs",
	})
	pipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dem_pipeline_failures_total",
		Help: "The total number of failed pipeline runs by error kind",
	}, []string{"kind"})
	depthEstimationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dem_depth_estimation_duration_seconds",
		Help:    "The time spent estimating water depth",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})
	presetRasterCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dem_preset_raster_cache_hits_total",
		Help: "The total number of hits on the decoded preset raster cache",
	})
	presetRasterCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dem_preset_raster_cache_misses_total",
		Help: "The total number of misses on the decoded preset raster cache",
	})
	presetRasterCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dem_preset_raster_cache_evictions_total",
		Help: "The total number of evictions from the decoded preset raster cache",
	})
	presetNormalizations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dem_preset_normalizations_total",
		Help: "The total number of preset normalizations that missed the normalized DEM cache",
	})
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dem_upstream_requests_total",
		Help: "The total number of requests to the elevation data service by HTTP status code",
	}, []string{"code"})
	upstreamRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dem_upstream_retries_total",
		Help: "The total number of retried requests to the elevation data service",
	})
)

// errorKind returns the metric label for err.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ErrNonRectangularGrid):
		return "non_rectangular_grid"
	case errors.Is(err, ErrEmptyGrid):
		return "empty_grid"
	case errors.Is(err, ErrInvalidSteps):
		return "invalid_steps"
	default:
		return "other"
	}
}
