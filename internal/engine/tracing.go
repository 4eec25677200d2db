// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const engineTracerName = "app-builder.engine"

const (
	spanWorkflowExecute = "workflow.execute"
	spanComponentRun    = "workflow.component"
)

func engineTracer() trace.Tracer {
	return otel.Tracer(engineTracerName)
}
