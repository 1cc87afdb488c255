package mapping

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledmap_sessions_total",
			Help: "Total number of mapping sessions by final status",
		},
		[]string{"status"}, // complete, failed, cancelled
	)

	ledsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledmap_leds_total",
			Help: "Total number of LEDs processed by result",
		},
		[]string{"result"}, // mapped, timeout, error
	)

	detectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledmap_detection_duration_seconds",
			Help:    "Per-light detection duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 1.5, 2, 5},
		},
	)

	baselineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledmap_baseline_duration_seconds",
			Help:    "Baseline capture duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	sessionSuccessRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledmap_session_success_ratio",
			Help: "Success ratio of the most recently finished session",
		},
	)
)
