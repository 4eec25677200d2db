// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ExecutionStatus string

const (
	ExecutionSucceeded ExecutionStatus = "SUCCEEDED"
	ExecutionPartial   ExecutionStatus = "PARTIAL"
	ExecutionFailed    ExecutionStatus = "FAILED"
)

type StepStatus string

const (
	StepSuccess StepStatus = "SUCCEEDED"
	StepFailed  StepStatus = "FAILED"
)

// StatusOf classifies a finished workflow: FAILED for a top-level failure,
// PARTIAL when at least one step failed, SUCCEEDED otherwise.
func StatusOf(result WorkflowResult) ExecutionStatus {
	if !result.Success {
		return ExecutionFailed
	}
	for _, step := range result.ComponentResults {
		if step.Failed() {
			return ExecutionPartial
		}
	}
	return ExecutionSucceeded
}

type RecordExecutionParams struct {
	AppID     *int64
	SessionID string
	Result    WorkflowResult
}

type ExecutionStepRecord struct {
	Index     int             `json:"index"`
	Type      ComponentType   `json:"type"`
	Status    StepStatus      `json:"status"`
	Output    json.RawMessage `json:"output"`
	CreatedAt time.Time       `json:"created_at"`
}

type ExecutionRecord struct {
	ID         uuid.UUID             `json:"id"`
	AppID      *int64                `json:"app_id,omitempty"`
	SessionID  string                `json:"session_id,omitempty"`
	Status     ExecutionStatus       `json:"status"`
	Error      string                `json:"error,omitempty"`
	Result     json.RawMessage       `json:"result,omitempty"`
	Steps      []ExecutionStepRecord `json:"steps"`
	FinishedAt time.Time             `json:"finished_at"`
}
