// Package telemetry exposes prometheus metrics for the turn loop and the
// arbitration engine. Everything is registered on the default registry and
// served by the HTTP layer on /metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_actions_total",
		Help: "Dispatched actions by name, category and outcome.",
	}, []string{"action", "category", "outcome"})

	ActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sleuth_action_duration_seconds",
		Help:    "Wall time of one action dispatch.",
		Buckets: prometheus.DefBuckets,
	}, []string{"category"})

	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sleuth_turns_total",
		Help: "Completed supervisor turns.",
	})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sleuth_turn_duration_seconds",
		Help:    "Wall time of one full turn.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})

	BudgetSpent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sleuth_budget_units_spent_total",
		Help: "Budget units charged across all runs.",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_runs_total",
		Help: "Runs reaching a terminal or paused status.",
	}, []string{"status"})

	PausesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_judge_pauses_total",
		Help: "Human pauses by trigger.",
	}, []string{"reason"})

	JudgeConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sleuth_judge_confidence",
		Help:    "Confidence of judge decisions.",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	EvaluatorDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_evaluator_degraded_total",
		Help: "Evaluator invocations dropped after the strict retry.",
	}, []string{"evaluator"})
)

// ObserveAction records one dispatched action.
func ObserveAction(name, category string, failed bool, d time.Duration) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	ActionsTotal.WithLabelValues(name, category, outcome).Inc()
	ActionDuration.WithLabelValues(category).Observe(d.Seconds())
}
