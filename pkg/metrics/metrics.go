// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRunsTotal tracks pipeline runs by terminal outcome
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	// PipelineRunDuration tracks pipeline run duration in seconds
	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// StageAttemptsTotal tracks stage attempts including retries
	StageAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "stage_attempts_total",
			Help:      "Total number of stage attempts by stage and result",
		},
		[]string{"stage", "result"},
	)

	// CapabilityCallsTotal tracks external capability calls
	CapabilityCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "capability",
			Name:      "calls_total",
			Help:      "Total number of external capability calls",
		},
		[]string{"capability", "result"},
	)

	// CapabilityCallDuration tracks external capability call duration
	CapabilityCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "capability",
			Name:      "call_duration_seconds",
			Help:      "Duration of external capability calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"capability"},
	)

	// SocialActionsTotal tracks outward social actions by kind and result
	SocialActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "social",
			Name:      "actions_total",
			Help:      "Total number of outward social actions by kind and result",
		},
		[]string{"action", "result"},
	)

	// FunnelTransitionsTotal tracks profile status transitions
	FunnelTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "funnel",
			Name:      "transitions_total",
			Help:      "Total number of profile status transitions",
		},
		[]string{"from", "to"},
	)
)
