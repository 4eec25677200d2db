// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"context"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/google/uuid"
)

type WorkflowExecutor interface {
	ExecuteWorkflow(ctx context.Context, workflow []domain.Component, input any, sessionID string) domain.WorkflowResult
}

type AppStore interface {
	CreateApp(ctx context.Context, params domain.CreateAppParams) (domain.App, error)
	GetApp(ctx context.Context, id int64) (domain.App, error)
	SaveConfiguration(ctx context.Context, id int64, cfg domain.AppConfiguration) error
	PublishApp(ctx context.Context, id int64) (domain.App, error)
}

type ExecutionRecorder interface {
	RecordExecution(ctx context.Context, params domain.RecordExecutionParams) (uuid.UUID, error)
}

type ExecutionReader interface {
	GetExecution(ctx context.Context, id uuid.UUID) (domain.ExecutionRecord, error)
}

type HealthChecker interface {
	Check(ctx context.Context) error
}
