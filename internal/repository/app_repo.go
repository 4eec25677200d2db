// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AppRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewAppRepository(pool *pgxpool.Pool, logger *slog.Logger) *AppRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &AppRepository{
		pool:   pool,
		logger: logger,
	}
}

const appColumns = `id, name, description, slug, status, configuration, published_at, created_at, updated_at`

func (r *AppRepository) CreateApp(ctx context.Context, params domain.CreateAppParams) (domain.App, error) {
	var slug *string
	if s := strings.TrimSpace(params.Slug); s != "" {
		slug = &s
	}

	app, err := scanApp(r.pool.QueryRow(ctx, `
		INSERT INTO apps (name, description, slug, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+appColumns,
		strings.TrimSpace(params.Name),
		strings.TrimSpace(params.Description),
		slug,
		domain.AppDraft,
	))
	if err != nil {
		r.logger.Error("insert app failed", "name", params.Name, "error", err)
		return domain.App{}, err
	}

	r.logger.Info("app created", "app_id", app.ID)
	return app, nil
}

func (r *AppRepository) GetApp(ctx context.Context, id int64) (domain.App, error) {
	app, err := scanApp(r.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM apps WHERE id=$1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.App{}, domain.ErrAppNotFound
		}
		r.logger.Error("get app failed", "app_id", id, "error", err)
		return domain.App{}, err
	}
	return app, nil
}

// SaveConfiguration replaces the stored builder document of an app.
func (r *AppRepository) SaveConfiguration(ctx context.Context, id int64, cfg domain.AppConfiguration) error {
	if cfg.Workflow == nil {
		cfg.Workflow = []domain.Component{}
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE apps
		SET configuration=$2,
		    updated_at=NOW()
		WHERE id=$1
	`, id, string(body))
	if err != nil {
		r.logger.Error("save configuration failed", "app_id", id, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAppNotFound
	}

	r.logger.Info("app configuration saved",
		"app_id", id,
		"workflow_steps", len(cfg.Workflow),
	)
	return nil
}

// PublishApp marks an app published so it can be executed by id. Publishing
// an already published app keeps its original published_at.
func (r *AppRepository) PublishApp(ctx context.Context, id int64) (domain.App, error) {
	app, err := scanApp(r.pool.QueryRow(ctx, `
		UPDATE apps
		SET status=$2,
		    published_at=COALESCE(published_at, NOW()),
		    updated_at=NOW()
		WHERE id=$1
		RETURNING `+appColumns,
		id,
		domain.AppPublished,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.App{}, domain.ErrAppNotFound
		}
		r.logger.Error("publish app failed", "app_id", id, "error", err)
		return domain.App{}, err
	}

	r.logger.Info("app published", "app_id", id)
	return app, nil
}

func scanApp(row pgx.Row) (domain.App, error) {
	var (
		app         domain.App
		slug        *string
		configBytes []byte
	)

	if err := row.Scan(
		&app.ID,
		&app.Name,
		&app.Description,
		&slug,
		&app.Status,
		&configBytes,
		&app.PublishedAt,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return domain.App{}, err
	}

	if slug != nil {
		app.Slug = *slug
	}
	if len(configBytes) > 0 {
		var cfg domain.AppConfiguration
		if err := json.Unmarshal(configBytes, &cfg); err != nil {
			return domain.App{}, fmt.Errorf("decode configuration of app %d: %w", app.ID, err)
		}
		app.Configuration = &cfg
	}

	return app, nil
}
