// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adiadia/app-builder/internal/domain"
	"github.com/adiadia/app-builder/internal/engine"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockApps struct {
	mu        sync.Mutex
	apps      map[int64]domain.App
	err       error
	saved     *domain.AppConfiguration
	createArg domain.CreateAppParams
}

func newMockApps(apps ...domain.App) *mockApps {
	m := &mockApps{apps: map[int64]domain.App{}}
	for _, a := range apps {
		m.apps[a.ID] = a
	}
	return m
}

func (m *mockApps) CreateApp(_ context.Context, params domain.CreateAppParams) (domain.App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.App{}, m.err
	}
	m.createArg = params
	app := domain.App{ID: int64(len(m.apps) + 1), Name: params.Name, Slug: params.Slug, Status: domain.AppDraft}
	m.apps[app.ID] = app
	return app, nil
}

func (m *mockApps) GetApp(_ context.Context, id int64) (domain.App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.App{}, m.err
	}
	app, ok := m.apps[id]
	if !ok {
		return domain.App{}, domain.ErrAppNotFound
	}
	return app, nil
}

func (m *mockApps) SaveConfiguration(_ context.Context, id int64, cfg domain.AppConfiguration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return domain.ErrAppNotFound
	}
	app.Configuration = &cfg
	m.apps[id] = app
	m.saved = &cfg
	return nil
}

func (m *mockApps) PublishApp(_ context.Context, id int64) (domain.App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return domain.App{}, domain.ErrAppNotFound
	}
	now := time.Now()
	app.Status = domain.AppPublished
	app.PublishedAt = &now
	m.apps[id] = app
	return app, nil
}

type mockRecorder struct {
	mu     sync.Mutex
	params []domain.RecordExecutionParams
	id     uuid.UUID
	err    error
}

func (m *mockRecorder) RecordExecution(_ context.Context, params domain.RecordExecutionParams) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, params)
	return m.id, m.err
}

type mockExecutions struct {
	rec domain.ExecutionRecord
	err error
}

func (m *mockExecutions) GetExecution(_ context.Context, id uuid.UUID) (domain.ExecutionRecord, error) {
	if m.err != nil {
		return domain.ExecutionRecord{}, m.err
	}
	if id != m.rec.ID {
		return domain.ExecutionRecord{}, domain.ErrExecutionNotFound
	}
	return m.rec, nil
}

type mockHealth struct{ err error }

func (m mockHealth) Check(context.Context) error { return m.err }

func testEngine() *engine.Engine {
	return engine.New(engine.Deps{Logger: discardLogger()})
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestRouter_Healthz(t *testing.T) {
	router := NewRouter(Deps{Engine: testEngine(), Logger: discardLogger()})
	if rec := doRequest(t, router, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	unhealthy := NewRouter(Deps{Engine: testEngine(), Logger: discardLogger(), Health: mockHealth{err: errors.New("schema missing")}})
	if rec := doRequest(t, unhealthy, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 got %d", rec.Code)
	}
}

func TestRouter_Version(t *testing.T) {
	router := NewRouter(Deps{Engine: testEngine(), Logger: discardLogger(), Version: "1.2.3"})

	rec := doRequest(t, router, http.MethodGet, "/version", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["version"] != "1.2.3" || body["commit"] != "none" || body["build_date"] != "unknown" {
		t.Fatalf("unexpected version body %v", body)
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := NewRouter(Deps{Engine: testEngine(), Logger: discardLogger()})

	rec := doRequest(t, router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "workflow_executions_total") {
		t.Fatal("expected workflow_executions_total in metrics output")
	}
}

func TestRouter_PreviewExecute(t *testing.T) {
	recorder := &mockRecorder{id: uuid.New()}
	router := NewRouter(Deps{Engine: testEngine(), Recorder: recorder, Logger: discardLogger()})

	rec := doRequest(t, router, http.MethodPost, "/api/apps/preview/execute",
		`{"workflow":[{"id":"1","type":"chatbot","config":{}},{"id":"2","type":"text-analysis","config":{}}],"input":"Hello","sessionId":"s-1"}`,
		nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(headerExecutionID); got != recorder.id.String() {
		t.Fatalf("expected execution id header %s got %q", recorder.id, got)
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	results, ok := body["componentResults"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("expected two component results, got %v", body["componentResults"])
	}
	first := results[0].(map[string]any)
	if first["type"] != "chatbot" {
		t.Fatalf("expected chatbot first, got %v", first["type"])
	}
	final := body["result"].(map[string]any)
	if final["type"] != "text-analysis" {
		t.Fatalf("expected result to be the last step, got %v", final)
	}

	if len(recorder.params) != 1 || recorder.params[0].SessionID != "s-1" || recorder.params[0].AppID != nil {
		t.Fatalf("unexpected recorded params %+v", recorder.params)
	}
}

func TestRouter_PreviewExecuteStepFailureStillSucceeds(t *testing.T) {
	router := NewRouter(Deps{Engine: testEngine(), Logger: discardLogger()})

	rec := doRequest(t, router, http.MethodPost, "/api/apps/preview/execute",
		`{"workflow":[{"type":"chatbot"},{"type":"unknown-x"},{"type":"text-analysis"}],"input":"Hi"}`,
		nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	results := body["componentResults"].([]any)
	failed := results[1].(map[string]any)
	if failed["type"] != "unknown-x" || !strings.Contains(failed["error"].(string), "unknown-x") {
		t.Fatalf("unexpected failure record %v", failed)
	}
	if len(failed) != 3 {
		t.Fatalf("expected failure record to carry only type, error, timestamp; got %v", failed)
	}
}

func TestRouter_PreviewExecuteInvalidWorkflow(t *testing.T) {
	router := NewRouter(Deps{Engine: testEngine(), Logger: discardLogger()})

	for _, body := range []string{
		`{"workflow":"not-an-array","input":"x"}`,
		`{"input":"x"}`,
		`{"workflow":null}`,
	} {
		rec := doRequest(t, router, http.MethodPost, "/api/apps/preview/execute", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected status 400 got %d", body, rec.Code)
		}
		out := decodeBody(t, rec)
		if out["success"] != false {
			t.Fatalf("body %s: expected success=false got %v", body, out)
		}
		if _, ok := out["componentResults"]; ok {
			t.Fatalf("body %s: expected no componentResults", body)
		}
		if out["timestamp"] == nil || out["error"] == nil {
			t.Fatalf("body %s: expected error and timestamp, got %v", body, out)
		}
	}
}

func TestRouter_PreviewExecuteMalformedBody(t *testing.T) {
	router := NewRouter(Deps{Engine: testEngine(), Logger: discardLogger()})

	for _, body := range []string{"", `{`, `{"workflow":[],"extra":1}`, `{"workflow":[]}{}`} {
		rec := doRequest(t, router, http.MethodPost, "/api/apps/preview/execute", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected status 400 got %d", body, rec.Code)
		}
	}
}

func TestRouter_PreviewExecuteRecorderErrorDoesNotFailRequest(t *testing.T) {
	recorder := &mockRecorder{err: errors.New("db down")}
	router := NewRouter(Deps{Engine: testEngine(), Recorder: recorder, Logger: discardLogger()})

	rec := doRequest(t, router, http.MethodPost, "/api/apps/preview/execute", `{"workflow":[],"input":"x"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if got := rec.Header().Get(headerExecutionID); got != "" {
		t.Fatalf("expected no execution id header, got %q", got)
	}
	body := decodeBody(t, rec)
	if body["result"] != "x" {
		t.Fatalf("expected empty workflow to return input, got %v", body["result"])
	}
}

func TestRouter_PreviewExecuteRateLimited(t *testing.T) {
	router := NewRouter(Deps{Engine: testEngine(), Logger: discardLogger(), ExecuteRatePerMinute: 1})

	headers := map[string]string{"X-Session-Id": "limited"}
	if rec := doRequest(t, router, http.MethodPost, "/api/apps/preview/execute", `{"workflow":[]}`, headers); rec.Code != http.StatusOK {
		t.Fatalf("expected first request 200 got %d", rec.Code)
	}
	rec := doRequest(t, router, http.MethodPost, "/api/apps/preview/execute", `{"workflow":[]}`, headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func publishedApp(id int64, workflow []domain.Component) domain.App {
	return domain.App{
		ID:            id,
		Name:          "bot",
		Status:        domain.AppPublished,
		Configuration: &domain.AppConfiguration{Workflow: workflow},
	}
}

func TestRouter_ExecuteApp(t *testing.T) {
	apps := newMockApps(publishedApp(7, []domain.Component{{ID: "1", Type: domain.ComponentChatbot}}))
	recorder := &mockRecorder{id: uuid.New()}
	router := NewRouter(Deps{Engine: testEngine(), Apps: apps, Recorder: recorder, Logger: discardLogger()})

	rec := doRequest(t, router, http.MethodPost, "/api/apps/7/execute", `{"input":{"message":"Hey"},"sessionId":"s"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	results := body["componentResults"].([]any)
	if len(results) != 1 {
		t.Fatalf("expected one result got %d", len(results))
	}
	if resp, _ := results[0].(map[string]any)["response"].(string); !strings.Contains(resp, "Hey") {
		t.Fatalf("expected chatbot response to use input message, got %q", resp)
	}
	if len(recorder.params) != 1 || recorder.params[0].AppID == nil || *recorder.params[0].AppID != 7 {
		t.Fatalf("expected execution recorded for app 7, got %+v", recorder.params)
	}
}

func TestRouter_ExecuteAppNotPublished(t *testing.T) {
	draft := publishedApp(3, nil)
	draft.Status = domain.AppDraft
	router := NewRouter(Deps{Engine: testEngine(), Apps: newMockApps(draft), Logger: discardLogger()})

	for _, path := range []string{"/api/apps/3/execute", "/api/apps/99/execute"} {
		rec := doRequest(t, router, http.MethodPost, path, `{"input":"x"}`, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status 404 got %d", path, rec.Code)
		}
	}

	if rec := doRequest(t, router, http.MethodPost, "/api/apps/abc/execute", `{"input":"x"}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid id got %d", rec.Code)
	}
}

func TestRouter_ExecuteAppStoreError(t *testing.T) {
	apps := newMockApps()
	apps.err = errors.New("db down")
	router := NewRouter(Deps{Engine: testEngine(), Apps: apps, Logger: discardLogger()})

	rec := doRequest(t, router, http.MethodPost, "/api/apps/1/execute", `{"input":"x"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 got %d", rec.Code)
	}
}

func TestRouter_AppRoutesAbsentWithoutStore(t *testing.T) {
	router := NewRouter(Deps{Engine: testEngine(), Logger: discardLogger(), AdminToken: "admin"})

	rec := doRequest(t, router, http.MethodGet, "/api/apps/1/configuration", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
}

func TestRouter_Configuration(t *testing.T) {
	apps := newMockApps(domain.App{ID: 1, Name: "draft", Status: domain.AppDraft})
	router := NewRouter(Deps{Engine: testEngine(), Apps: apps, AdminToken: "admin", Logger: discardLogger()})
	admin := map[string]string{"Authorization": "Bearer admin"}

	rec := doRequest(t, router, http.MethodGet, "/api/apps/1/configuration", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if body := decodeBody(t, rec); len(body["workflow"].([]any)) != 0 {
		t.Fatalf("expected empty workflow, got %v", body)
	}

	payload := `{"workflow":[{"id":1,"type":"chatbot","config":{"prompt":"p"}}],"settings":{"theme":"dark"}}`
	if rec := doRequest(t, router, http.MethodPut, "/api/apps/1/configuration", payload, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without admin token got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPut, "/api/apps/1/configuration", payload, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if apps.saved == nil || len(apps.saved.Workflow) != 1 || apps.saved.Workflow[0].ID != "1" {
		t.Fatalf("unexpected saved configuration %+v", apps.saved)
	}
	if apps.saved.Settings["theme"] != "dark" {
		t.Fatalf("expected settings to be stored, got %v", apps.saved.Settings)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/apps/1/configuration", "", nil)
	body := decodeBody(t, rec)
	workflow := body["workflow"].([]any)
	if len(workflow) != 1 || workflow[0].(map[string]any)["type"] != "chatbot" {
		t.Fatalf("expected stored workflow, got %v", body)
	}
}

func TestRouter_SaveConfigurationRejectsInvalid(t *testing.T) {
	apps := newMockApps(domain.App{ID: 1, Status: domain.AppDraft})
	router := NewRouter(Deps{Engine: testEngine(), Apps: apps, AdminToken: "admin", Logger: discardLogger()})
	admin := map[string]string{"Authorization": "Bearer admin"}

	for _, body := range []string{
		`{"settings":{}}`,
		`{"workflow":{"type":"chatbot"}}`,
		`{"workflow":[{"type":""}]}`,
		`{"workflow":[{"id":"x"}]}`,
	} {
		rec := doRequest(t, router, http.MethodPut, "/api/apps/1/configuration", body, admin)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected status 400 got %d", body, rec.Code)
		}
	}

	rec := doRequest(t, router, http.MethodPut, "/api/apps/2/configuration", `{"workflow":[]}`, admin)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for missing app got %d", rec.Code)
	}
	if apps.saved != nil {
		t.Fatal("expected nothing to be saved")
	}
}

func TestRouter_CreateAndDeployApp(t *testing.T) {
	apps := newMockApps()
	router := NewRouter(Deps{Engine: testEngine(), Apps: apps, AdminToken: "admin", Logger: discardLogger()})
	admin := map[string]string{"Authorization": "Bearer admin"}

	rec := doRequest(t, router, http.MethodPost, "/api/apps", `{"name":" Helper ","slug":"helper-bot"}`, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	if created["name"] != "Helper" || created["status"] != "draft" {
		t.Fatalf("unexpected created app %v", created)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/apps/1/deploy", "", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	deployed := decodeBody(t, rec)["app"].(map[string]any)
	if deployed["status"] != "published" {
		t.Fatalf("expected published app, got %v", deployed)
	}

	if rec := doRequest(t, router, http.MethodPost, "/api/apps/42/deploy", "", admin); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
}

func TestRouter_CreateAppValidation(t *testing.T) {
	router := NewRouter(Deps{Engine: testEngine(), Apps: newMockApps(), AdminToken: "admin", Logger: discardLogger()})
	admin := map[string]string{"Authorization": "Bearer admin"}

	for _, body := range []string{
		`{"name":"   "}`,
		`{"name":"ok","slug":"Not A Slug"}`,
		`{"name":"ok","unknown":true}`,
	} {
		rec := doRequest(t, router, http.MethodPost, "/api/apps", body, admin)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected status 400 got %d", body, rec.Code)
		}
	}
}

func TestRouter_GetExecution(t *testing.T) {
	id := uuid.New()
	executions := &mockExecutions{rec: domain.ExecutionRecord{
		ID:     id,
		Status: domain.ExecutionPartial,
		Steps: []domain.ExecutionStepRecord{
			{Index: 0, Type: domain.ComponentChatbot, Status: domain.StepSuccess, Output: json.RawMessage(`{"type":"chatbot"}`)},
		},
	}}
	router := NewRouter(Deps{Engine: testEngine(), Executions: executions, Logger: discardLogger()})

	rec := doRequest(t, router, http.MethodGet, "/api/executions/"+id.String(), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "PARTIAL" || len(body["steps"].([]any)) != 1 {
		t.Fatalf("unexpected execution body %v", body)
	}

	if rec := doRequest(t, router, http.MethodGet, "/api/executions/"+uuid.NewString(), "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodGet, "/api/executions/not-a-uuid", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
}

func TestRouter_PreviewExecuteUnencodablePayloadIsWellFormed500(t *testing.T) {
	registry := engine.NewRegistry()
	registry.Register("infinite", engine.CapabilityFunc(func(ctx context.Context, config map[string]any, input any, sessionID string) (domain.Payload, error) {
		return domain.Payload{"value": math.Inf(1)}, nil
	}))
	eng := engine.New(engine.Deps{Logger: discardLogger(), Registry: registry})
	router := NewRouter(Deps{Engine: eng, Logger: discardLogger()})

	rec := doRequest(t, router, http.MethodPost, "/api/apps/preview/execute", `{"workflow":[{"type":"infinite"}],"input":"x"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "encode response") {
		t.Fatalf("expected encode error message, got %v", body["error"])
	}
	if _, ok := body["componentResults"]; ok {
		t.Fatal("expected no componentResults in failure body")
	}
}
