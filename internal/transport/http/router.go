// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/adiadia/app-builder/internal/engine"
	"github.com/adiadia/app-builder/internal/metrics"
	"github.com/adiadia/app-builder/internal/transport/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const headerExecutionID = "X-Execution-Id"

type Deps struct {
	Engine     WorkflowExecutor
	Apps       AppStore
	Recorder   ExecutionRecorder
	Executions ExecutionReader
	Health     HealthChecker
	Logger     *slog.Logger
	AdminToken string
	// ExecuteRatePerMinute limits execute calls per client; zero disables.
	ExecuteRatePerMinute int
	Version              string
	Commit               string
	BuildDate            string
}

func NewRouter(deps Deps) http.Handler {
	if deps.Engine == nil {
		panic("httptransport.NewRouter requires an engine")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics.Init()
	version := valueOrDefault(deps.Version, "dev")
	commit := valueOrDefault(deps.Commit, "none")
	buildDate := valueOrDefault(deps.BuildDate, "unknown")

	h := &handlers{deps: deps, logger: logger, validate: newValidator()}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(tracingMiddleware())
	r.Use(requestLoggingMiddleware(logger))

	// ---------------- HEALTH ----------------

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			if err := deps.Health.Check(r.Context()); err != nil {
				logger.Error("health check failed", "error", err)
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// ---------------- METRICS ----------------

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// ---------------- VERSION ----------------

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"commit":     commit,
			"build_date": buildDate,
		})
	})

	// ---------------- EXECUTION ----------------

	r.Group(func(r chi.Router) {
		if deps.ExecuteRatePerMinute > 0 {
			r.Use(middleware.ExecuteRateLimit(middleware.NewRateLimiter(deps.ExecuteRatePerMinute), logger))
		}

		r.Post("/api/apps/preview/execute", h.previewExecute)
		if deps.Apps != nil {
			r.Post("/api/apps/{id}/execute", h.executeApp)
		}
	})

	// ---------------- APPS ----------------

	if deps.Apps != nil {
		r.Get("/api/apps/{id}/configuration", h.getConfiguration)

		r.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminTokenAuth(deps.AdminToken, logger))

			admin.Post("/api/apps", h.createApp)
			admin.Put("/api/apps/{id}/configuration", h.saveConfiguration)
			admin.Post("/api/apps/{id}/deploy", h.deployApp)
		})
	}

	// ---------------- EXECUTION LOG ----------------

	if deps.Executions != nil {
		r.Get("/api/executions/{id}", h.getExecution)
	}

	return r
}

type handlers struct {
	deps     Deps
	logger   *slog.Logger
	validate *requestValidator
}

func (h *handlers) previewExecute(w http.ResponseWriter, r *http.Request) {
	var req previewExecuteRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	workflow, err := engine.DecodeWorkflow(req.Workflow)
	if err != nil {
		h.logger.Warn("preview workflow rejected", "session_id", req.SessionID, "error", err)
		metrics.IncWorkflowExecution(string(domain.ExecutionFailed))
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.deps.Engine.ExecuteWorkflow(r.Context(), workflow, req.Input, req.SessionID)
	h.record(w, r, nil, req.SessionID, result)
	writeResult(w, result)
}

func (h *handlers) executeApp(w http.ResponseWriter, r *http.Request) {
	appID, ok := parseAppID(w, r)
	if !ok {
		return
	}

	var req executeAppRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	app, err := h.deps.Apps.GetApp(r.Context(), appID)
	if err != nil && !errors.Is(err, domain.ErrAppNotFound) {
		h.logger.Error("load app failed", "app_id", appID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to execute app")
		return
	}
	if err != nil || app.Status != domain.AppPublished {
		writeMessage(w, http.StatusNotFound, "app not found or not published")
		return
	}

	var workflow []domain.Component
	if app.Configuration != nil {
		workflow = app.Configuration.Workflow
	}

	result := h.deps.Engine.ExecuteWorkflow(r.Context(), workflow, req.Input, req.SessionID)
	h.record(w, r, &appID, req.SessionID, result)
	writeResult(w, result)
}

// record stores the run when an execution recorder is configured. Recording
// failures are logged and never change the response.
func (h *handlers) record(w http.ResponseWriter, r *http.Request, appID *int64, sessionID string, result domain.WorkflowResult) {
	if h.deps.Recorder == nil {
		return
	}

	id, err := h.deps.Recorder.RecordExecution(r.Context(), domain.RecordExecutionParams{
		AppID:     appID,
		SessionID: sessionID,
		Result:    result,
	})
	if err != nil {
		h.logger.Error("record execution failed", "session_id", sessionID, "error", err)
		return
	}
	w.Header().Set(headerExecutionID, id.String())
}

func (h *handlers) getConfiguration(w http.ResponseWriter, r *http.Request) {
	appID, ok := parseAppID(w, r)
	if !ok {
		return
	}

	app, err := h.deps.Apps.GetApp(r.Context(), appID)
	if err != nil {
		if errors.Is(err, domain.ErrAppNotFound) {
			writeMessage(w, http.StatusNotFound, "app not found")
			return
		}
		h.logger.Error("get configuration failed", "app_id", appID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to load configuration")
		return
	}

	cfg := domain.AppConfiguration{Workflow: []domain.Component{}}
	if app.Configuration != nil {
		cfg = *app.Configuration
		if cfg.Workflow == nil {
			cfg.Workflow = []domain.Component{}
		}
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *handlers) saveConfiguration(w http.ResponseWriter, r *http.Request) {
	appID, ok := parseAppID(w, r)
	if !ok {
		return
	}

	var req saveConfigurationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	workflow, err := engine.DecodeWorkflow(req.Workflow)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Components(workflow); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := domain.AppConfiguration{Workflow: workflow, Settings: req.Settings}
	if err := h.deps.Apps.SaveConfiguration(r.Context(), appID, cfg); err != nil {
		if errors.Is(err, domain.ErrAppNotFound) {
			writeMessage(w, http.StatusNotFound, "app not found")
			return
		}
		h.logger.Error("save configuration failed", "app_id", appID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to save configuration")
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

func (h *handlers) createApp(w http.ResponseWriter, r *http.Request) {
	var req createAppRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	app, err := h.deps.Apps.CreateApp(r.Context(), domain.CreateAppParams{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
	})
	if err != nil {
		h.logger.Error("create app failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to create app")
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

func (h *handlers) deployApp(w http.ResponseWriter, r *http.Request) {
	appID, ok := parseAppID(w, r)
	if !ok {
		return
	}

	app, err := h.deps.Apps.PublishApp(r.Context(), appID)
	if err != nil {
		if errors.Is(err, domain.ErrAppNotFound) {
			writeMessage(w, http.StatusNotFound, "app not found")
			return
		}
		h.logger.Error("deploy app failed", "app_id", appID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to deploy app")
		return
	}

	h.logger.Info("app deployed via API", "app_id", appID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "App deployed successfully",
		"app":     app,
	})
}

func (h *handlers) getExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid execution ID")
		return
	}

	rec, err := h.deps.Executions.GetExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrExecutionNotFound) {
			writeMessage(w, http.StatusNotFound, "execution not found")
			return
		}
		h.logger.Error("get execution failed", "execution_id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to load execution")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func parseAppID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid app ID")
		return 0, false
	}
	return id, true
}

// writeJSON encodes before writing the status so an unencodable value (a
// capability payload holding NaN, say) still yields a well-formed 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(domain.WorkflowResult{
			Success:   false,
			Error:     "encode response: " + err.Error(),
			Timestamp: time.Now(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeFailure answers with the same top-level failure shape the engine
// produces, so callers parse one format.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, domain.WorkflowResult{
		Success:   false,
		Error:     message,
		Timestamp: time.Now(),
	})
}

func writeResult(w http.ResponseWriter, result domain.WorkflowResult) {
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

func valueOrDefault(value, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue
	}
	return trimmed
}
