// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/adiadia/app-builder/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultStepError = "Component execution failed"

type Deps struct {
	Logger   *slog.Logger
	Registry *Registry

	// DefaultTimeout bounds every capability call; zero means no limit.
	DefaultTimeout time.Duration
	// Timeouts overrides DefaultTimeout per component type.
	Timeouts map[domain.ComponentType]time.Duration

	Clock func() time.Time
}

// Engine runs workflows. It keeps no per-run state, so one Engine serves
// concurrent executions.
type Engine struct {
	logger         *slog.Logger
	registry       *Registry
	defaultTimeout time.Duration
	timeouts       map[domain.ComponentType]time.Duration
	now            func() time.Time
}

func New(deps Deps) *Engine {
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}

	registry := deps.Registry
	if registry == nil {
		registry = DefaultRegistry(RegistryOptions{})
	}

	timeouts := make(map[domain.ComponentType]time.Duration, len(deps.Timeouts))
	for t, d := range deps.Timeouts {
		timeouts[t] = d
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	return &Engine{
		logger:         l,
		registry:       registry,
		defaultTimeout: deps.DefaultTimeout,
		timeouts:       timeouts,
		now:            now,
	}
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

// Execute validates the raw workflow and runs it. A workflow that is absent or
// not an array is a top-level failure and no step runs.
func (e *Engine) Execute(ctx context.Context, req domain.ExecutionRequest) domain.WorkflowResult {
	workflow, err := DecodeWorkflow(req.Workflow)
	if err != nil {
		e.logger.Warn("workflow rejected", "session_id", req.SessionID, "error", err)
		metrics.IncWorkflowExecution(string(domain.ExecutionFailed))
		return e.failure(err)
	}
	return e.ExecuteWorkflow(ctx, workflow, req.Input, req.SessionID)
}

// ExecuteWorkflow runs components in order. Each successful payload becomes
// the next step's input; a failed step is recorded in place and the next step
// receives the same input the failed one did.
func (e *Engine) ExecuteWorkflow(
	ctx context.Context,
	workflow []domain.Component,
	input any,
	sessionID string,
) (result domain.WorkflowResult) {
	started := e.now()

	ctx, span := engineTracer().Start(ctx, spanWorkflowExecute, trace.WithAttributes(
		attribute.Int("workflow.steps", len(workflow)),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("workflow execution panicked",
				"session_id", sessionID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			result = domain.WorkflowResult{
				Success:   false,
				Error:     fmt.Sprintf("workflow execution failed: %v", rec),
				Timestamp: e.safeNow(),
			}
		}

		status := domain.StatusOf(result)
		metrics.IncWorkflowExecution(string(status))
		if !result.Success {
			span.SetStatus(otelcodes.Error, result.Error)
		}
		span.SetAttributes(attribute.String("workflow.status", string(status)))
	}()

	e.logger.Debug("workflow execution started",
		"session_id", sessionID,
		"workflow_steps", len(workflow),
	)

	componentResults := make([]domain.StepResult, 0, len(workflow))
	currentInput := input

	for i, component := range workflow {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("workflow execution aborted",
				"session_id", sessionID,
				"step_index", i,
				"error", err,
			)
			return e.failure(err)
		}

		step := e.runStep(ctx, i, component, currentInput, sessionID)
		componentResults = append(componentResults, step)
		if !step.Failed() {
			currentInput = step.Value()
		}
	}

	var final any = input
	if len(componentResults) > 0 {
		final = componentResults[len(componentResults)-1]
	}

	e.logger.Info("workflow execution completed",
		"session_id", sessionID,
		"workflow_steps", len(workflow),
		"status", domain.StatusOf(domain.WorkflowResult{Success: true, ComponentResults: componentResults}),
		"duration_ms", e.now().Sub(started).Milliseconds(),
	)

	return domain.WorkflowResult{
		Success:          true,
		Result:           final,
		ComponentResults: componentResults,
		Timestamp:        e.now(),
	}
}

func (e *Engine) runStep(
	ctx context.Context,
	index int,
	component domain.Component,
	input any,
	sessionID string,
) domain.StepResult {
	ctx, span := engineTracer().Start(ctx, spanComponentRun, trace.WithAttributes(
		attribute.Int("component.index", index),
		attribute.String("component.id", component.ID),
		attribute.String("component.type", string(component.Type)),
	))
	defer span.End()

	started := time.Now()
	payload, err := e.executeStep(ctx, component, input, sessionID)
	duration := time.Since(started)

	label := metricsLabel(e.registry, component.Type)
	metrics.ObserveComponentStepDuration(label, duration)

	if err != nil {
		metrics.IncComponentStep(label, string(domain.StepFailed))
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())

		e.logger.Warn("component execution failed",
			"session_id", sessionID,
			"step_index", index,
			"component_id", component.ID,
			"component_type", component.Type,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)

		return domain.StepResult{
			Type:      component.Type,
			Error:     stepErrorMessage(err),
			Timestamp: e.now(),
		}
	}

	metrics.IncComponentStep(label, string(domain.StepSuccess))
	e.logger.Debug("component executed",
		"session_id", sessionID,
		"step_index", index,
		"component_id", component.ID,
		"component_type", component.Type,
		"duration_ms", duration.Milliseconds(),
	)

	if payload == nil {
		payload = domain.Payload{}
	}

	return domain.StepResult{
		Type:      component.Type,
		Payload:   payload,
		Timestamp: e.now(),
	}
}

// executeStep dispatches one component and converts a capability panic into
// an ordinary step error.
func (e *Engine) executeStep(
	ctx context.Context,
	component domain.Component,
	input any,
	sessionID string,
) (payload domain.Payload, err error) {
	capability, ok := e.registry.Lookup(component.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownComponentType, component.Type)
	}

	timeout := e.timeoutFor(component.Type)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			payload = nil
			err = fmt.Errorf("component %s panicked: %v", component.Type, rec)
		}
	}()

	payload, err = capability.Execute(ctx, component.Config, input, sessionID)
	if err == nil && timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("component %s timed out after %s: %w", component.Type, timeout, ctx.Err())
	}
	return payload, err
}

// stepErrorMessage never returns an empty string: an empty Error would read as
// a successful step.
func stepErrorMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return defaultStepError
}

// safeNow is used while recovering, where a broken Clock must not panic again.
func (e *Engine) safeNow() (t time.Time) {
	defer func() {
		if recover() != nil {
			t = time.Now()
		}
	}()
	return e.now()
}

func (e *Engine) timeoutFor(t domain.ComponentType) time.Duration {
	if d, ok := e.timeouts[t]; ok {
		return d
	}
	return e.defaultTimeout
}

func (e *Engine) failure(err error) domain.WorkflowResult {
	return domain.WorkflowResult{
		Success:   false,
		Error:     err.Error(),
		Timestamp: e.now(),
	}
}

// metricsLabel keeps unregistered, caller-supplied types out of label values.
func metricsLabel(r *Registry, t domain.ComponentType) string {
	if _, ok := r.Lookup(t); ok {
		return string(t)
	}
	return "unknown"
}
