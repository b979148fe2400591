package scan

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/ratelimit"
	"github.com/MeKo-Tech/gradescan/internal/recognition"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradescan_scans_total",
			Help: "Total number of scans by outcome",
		},
		[]string{"outcome"},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gradescan_scan_duration_seconds",
			Help:    "End-to-end scan duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)

	scanPath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradescan_scan_path_total",
			Help: "Extraction path that produced the subjects",
		},
		[]string{"path"}, // path: full, columns, forced_center
	)

	recognitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gradescan_recognition_duration_seconds",
			Help:    "Recognition backend latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 25},
		},
		[]string{"region"}, // region: full, left, right
	)

	scanSubjects = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gradescan_scan_subjects",
			Help:    "Number of subjects returned per scan",
			Buckets: []float64{0, 1, 2, 4, 6, 8, 12, 16, 24},
		},
	)

	rateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gradescan_rate_limit_hits_total",
			Help: "Total number of scans rejected by the per-caller quota",
		},
	)

	noiseRowsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gradescan_noise_rows_dropped_total",
			Help: "Unmatched rows discarded as recognition noise",
		},
	)
)

// Outcome classifies a scan error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, imageprep.ErrImageTooLarge):
		return "too_large"
	case errors.Is(err, imageprep.ErrInvalidImage):
		return "invalid_image"
	case errors.Is(err, ratelimit.ErrLimited):
		return "rate_limited"
	case errors.Is(err, recognition.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func observeScan(d time.Duration, err error) {
	scansTotal.WithLabelValues(Outcome(err)).Inc()
	scanDuration.Observe(d.Seconds())
}
