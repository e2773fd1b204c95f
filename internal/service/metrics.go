package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagebuilder_operations_applied_total",
		Help: "Edit operations that changed the page, by operation",
	}, []string{"op"})

	opsIgnoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagebuilder_operations_ignored_total",
		Help: "Edit operations that left the page unchanged, by operation",
	}, []string{"op"})

	savesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagebuilder_saves_total",
		Help: "Page saves, by result",
	}, []string{"result"})

	saveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagebuilder_save_duration_seconds",
		Help:    "Duration of page saves",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	validationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagebuilder_validation_errors_total",
		Help: "Validation errors reported across all validate calls",
	})

	openSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pagebuilder_open_sessions",
		Help: "Number of pages currently open for editing",
	})
)
