// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"sync"
	"time"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	workflowExecutionsCounter   *prometheus.CounterVec
	componentStepsCounter       *prometheus.CounterVec
	componentStepDurationMetric *prometheus.HistogramVec
	rateLimitedCounter          prometheus.Counter
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		workflowExecutionsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_executions_total",
				Help: "Total number of finished workflow executions by status.",
			},
			[]string{"status"},
		)

		componentStepsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "component_steps_total",
				Help: "Total number of component steps by component type and status.",
			},
			[]string{"type", "status"},
		)

		componentStepDurationMetric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "component_step_duration_seconds",
				Help:    "Duration of capability calls in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		)

		rateLimitedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "execute_requests_rate_limited_total",
				Help: "Total number of execute requests rejected by the rate limiter.",
			},
		)

		prometheus.MustRegister(
			workflowExecutionsCounter,
			componentStepsCounter,
			componentStepDurationMetric,
			rateLimitedCounter,
		)

		// Ensure counter vectors are visible at /metrics before first increment.
		for _, status := range []domain.ExecutionStatus{
			domain.ExecutionSucceeded,
			domain.ExecutionPartial,
			domain.ExecutionFailed,
		} {
			workflowExecutionsCounter.WithLabelValues(string(status))
		}
	})
}

func IncWorkflowExecution(status string) {
	Init()
	workflowExecutionsCounter.WithLabelValues(status).Inc()
}

func IncComponentStep(componentType, status string) {
	Init()
	componentStepsCounter.WithLabelValues(componentType, status).Inc()
}

func ObserveComponentStepDuration(componentType string, d time.Duration) {
	Init()
	componentStepDurationMetric.WithLabelValues(componentType).Observe(d.Seconds())
}

func IncRateLimited() {
	Init()
	rateLimitedCounter.Inc()
}
