// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestIncWorkflowExecution(t *testing.T) {
	Init()
	before := counterValue(t, workflowExecutionsCounter.WithLabelValues("PARTIAL"))

	IncWorkflowExecution("PARTIAL")
	IncWorkflowExecution("PARTIAL")

	after := counterValue(t, workflowExecutionsCounter.WithLabelValues("PARTIAL"))
	if after-before != 2 {
		t.Fatalf("expected counter to grow by 2 got %v", after-before)
	}
}

func TestIncComponentStep(t *testing.T) {
	Init()
	before := counterValue(t, componentStepsCounter.WithLabelValues("chatbot", "FAILED"))

	IncComponentStep("chatbot", "FAILED")

	after := counterValue(t, componentStepsCounter.WithLabelValues("chatbot", "FAILED"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1 got %v", after-before)
	}
}

func TestObserveComponentStepDuration(t *testing.T) {
	ObserveComponentStepDuration("visual-search", 150*time.Millisecond)

	metric, err := componentStepDurationMetric.GetMetricWithLabelValues("visual-search")
	if err != nil {
		t.Fatalf("get metric: %v", err)
	}
	var m dto.Metric
	if err := metric.(prometheus.Histogram).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.GetHistogram().GetSampleCount() == 0 {
		t.Fatal("expected at least one observation")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	IncRateLimited()
}
