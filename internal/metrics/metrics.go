package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compileFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bpl_bundle_build_failed",
			Help: "Number of times a bundle set has failed to build",
		},
		[]string{"name", "error_type"},
	)

	compileCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bpl_bundle_build_count",
			Help: "Total number of times a bundle set has been built",
		},
	)

	compileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bpl_bundle_build_duration_seconds",
			Help:    "Bundle set build duration in seconds",
			Buckets: []float64{0.1, 0.2, 0.5, 1, 1.5, 2, 5, 10, 30, 60},
		},
		[]string{"name"},
	)

	lastCompileStart = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bpl_last_bundle_build_start_timestamp",
			Help: "Unix timestamp of when the last build started",
		},
		[]string{"name"},
	)

	lastCompileEnd = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bpl_last_bundle_build_end_timestamp",
			Help: "Unix timestamp of when the last build ended",
		},
		[]string{"name"},
	)

	artifactSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bpl_artifact_size_bytes",
			Help: "Size in bytes of the last emitted artifact",
		},
		[]string{"path"},
	)
)

// CompileSucceeded records one successful build of a named bundle set.
func CompileSucceeded(name string, startTime time.Time) {
	compileCount.Inc()
	compileDuration.WithLabelValues(name).Observe(time.Since(startTime).Seconds())
	lastCompileStart.WithLabelValues(name).Set(float64(startTime.Unix()))
	lastCompileEnd.WithLabelValues(name).Set(float64(time.Now().Unix()))
}

// CompileFailed records one failed build of a named bundle set, labelled
// with the failure kind.
func CompileFailed(name, errorType string) {
	compileCount.Inc()
	compileFailed.WithLabelValues(name, errorType).Inc()
}

// ArtifactEmitted records size information for one emitted artifact.
func ArtifactEmitted(path string, size int) {
	artifactSize.WithLabelValues(path).Set(float64(size))
}
