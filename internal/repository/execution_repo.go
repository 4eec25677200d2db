// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExecutionRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewExecutionRepository(pool *pgxpool.Pool, logger *slog.Logger) *ExecutionRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExecutionRepository{
		pool:   pool,
		logger: logger,
	}
}

// RecordExecution stores a finished run and its step results in one
// transaction.
func (r *ExecutionRepository) RecordExecution(ctx context.Context, params domain.RecordExecutionParams) (uuid.UUID, error) {
	executionID := uuid.New()
	status := domain.StatusOf(params.Result)

	resultBody, err := json.Marshal(params.Result)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode workflow result: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error("begin tx failed", "error", err)
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO executions (id, app_id, session_id, status, error, result, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		executionID,
		params.AppID,
		params.SessionID,
		status,
		params.Result.Error,
		string(resultBody),
		params.Result.Timestamp,
	); err != nil {
		r.logger.Error("insert execution failed", "execution_id", executionID, "error", err)
		return uuid.Nil, err
	}

	for i, step := range params.Result.ComponentResults {
		output, err := json.Marshal(step)
		if err != nil {
			return uuid.Nil, fmt.Errorf("encode step %d: %w", i, err)
		}

		stepStatus := domain.StepSuccess
		if step.Failed() {
			stepStatus = domain.StepFailed
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO execution_steps (execution_id, step_index, component_type, status, output)
			VALUES ($1, $2, $3, $4, $5)
		`,
			executionID,
			i,
			step.Type,
			stepStatus,
			string(output),
		); err != nil {
			r.logger.Error("insert execution step failed",
				"execution_id", executionID,
				"step_index", i,
				"error", err,
			)
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("commit failed", "execution_id", executionID, "error", err)
		return uuid.Nil, err
	}

	r.logger.Info("execution recorded",
		"execution_id", executionID,
		"status", status,
		"workflow_steps", len(params.Result.ComponentResults),
	)
	return executionID, nil
}

func (r *ExecutionRepository) GetExecution(ctx context.Context, id uuid.UUID) (domain.ExecutionRecord, error) {
	var (
		rec    domain.ExecutionRecord
		result []byte
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, app_id, session_id, status, error, result, finished_at
		FROM executions
		WHERE id=$1
	`, id).Scan(
		&rec.ID,
		&rec.AppID,
		&rec.SessionID,
		&rec.Status,
		&rec.Error,
		&result,
		&rec.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExecutionRecord{}, domain.ErrExecutionNotFound
		}
		r.logger.Error("get execution failed", "execution_id", id, "error", err)
		return domain.ExecutionRecord{}, err
	}
	rec.Result = json.RawMessage(result)

	rows, err := r.pool.Query(ctx, `
		SELECT step_index, component_type, status, output, created_at
		FROM execution_steps
		WHERE execution_id=$1
		ORDER BY step_index ASC
	`, id)
	if err != nil {
		r.logger.Error("list execution steps failed", "execution_id", id, "error", err)
		return domain.ExecutionRecord{}, err
	}
	defer rows.Close()

	rec.Steps = make([]domain.ExecutionStepRecord, 0, 4)
	for rows.Next() {
		var (
			step   domain.ExecutionStepRecord
			output []byte
		)
		if err := rows.Scan(&step.Index, &step.Type, &step.Status, &output, &step.CreatedAt); err != nil {
			r.logger.Error("scan execution step failed", "execution_id", id, "error", err)
			return domain.ExecutionRecord{}, err
		}
		step.Output = json.RawMessage(output)
		rec.Steps = append(rec.Steps, step)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("iterate execution steps failed", "execution_id", id, "error", err)
		return domain.ExecutionRecord{}, err
	}

	return rec, nil
}
