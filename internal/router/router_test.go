package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/monocle/internal/auth"
	"github.com/monocle-dev/monocle/internal/handlers"
	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/queue"
	"github.com/monocle-dev/monocle/internal/store"
	"github.com/monocle-dev/monocle/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeMonitors struct {
	monitors map[string]*models.Monitor
	checks   []models.CheckResult
	limit    int
}

func (f *fakeMonitors) GetMonitor(ctx context.Context, id string) (*models.Monitor, error) {
	m, ok := f.monitors[id]
	if !ok {
		return nil, store.ErrMonitorNotFound
	}
	return m, nil
}

func (f *fakeMonitors) RecentCheckResults(ctx context.Context, monitorID string, limit int) ([]models.CheckResult, error) {
	f.limit = limit
	return f.checks, nil
}

func (f *fakeMonitors) ListIncidents(ctx context.Context, monitorID string) ([]models.Incident, error) {
	return []models.Incident{{
		BaseModel:    models.BaseModel{ID: "inc-1"},
		MonitorID:    monitorID,
		Status:       types.IncidentOpen,
		StartAt:      time.Now(),
		ErrorMessage: "connection refused",
	}}, nil
}

type fakeJobs struct {
	mu      sync.Mutex
	jobs    []queue.Job
	pingErr error
}

func (f *fakeJobs) Enqueue(ctx context.Context, job queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeJobs) Ping(ctx context.Context) error { return f.pingErr }

type fakeConsumer struct{}

func (fakeConsumer) GetStatus() map[string]interface{} {
	return map[string]interface{}{"running": true, "workers": 10, "processed": 0, "failed": 0}
}

type fakeSessions struct{}

func (fakeSessions) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type fixture struct {
	engine   *gin.Engine
	jobs     *fakeJobs
	monitors *fakeMonitors
	monitor  *models.Monitor
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	j, err := auth.NewJWT("secret")
	require.NoError(t, err)

	token, err := j.GenerateJWT("user-1", time.Hour)
	require.NoError(t, err)

	monitor := &models.Monitor{BaseModel: models.BaseModel{ID: uuid.NewString()}, UserID: "user-1", Name: "api"}
	other := &models.Monitor{BaseModel: models.BaseModel{ID: uuid.NewString()}, UserID: "user-2", Name: "theirs"}

	monitors := &fakeMonitors{monitors: map[string]*models.Monitor{monitor.ID: monitor, other.ID: other}}
	jobs := &fakeJobs{}
	logger := zaptest.NewLogger(t).Sugar()

	h := handlers.New(monitors, jobs, fakeConsumer{}, fakeSessions{}, logger)

	return &fixture{
		engine:   NewRouter(h, j, types.AllowedOrigins(""), logger),
		jobs:     jobs,
		monitors: monitors,
		monitor:  monitor,
		token:    token,
	}
}

func (f *fixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["consumer"].(map[string]interface{})["running"])

	f.jobs.pingErr = errors.New("connection refused")
	w = f.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestTriggerCheck(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/monitors/"+f.monitor.ID+"/check", f.token)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, f.monitor.ID, f.jobs.jobs[0].MonitorID)
}

func TestTriggerCheckErrors(t *testing.T) {
	f := newFixture(t)

	var otherID string
	for id, m := range f.monitors.monitors {
		if m.UserID != "user-1" {
			otherID = id
		}
	}

	tests := []struct {
		name  string
		path  string
		token string
		code  int
	}{
		{name: "no token", path: "/api/monitors/" + f.monitor.ID + "/check", code: http.StatusUnauthorized},
		{name: "bad token", path: "/api/monitors/" + f.monitor.ID + "/check", token: "garbage", code: http.StatusUnauthorized},
		{name: "invalid id", path: "/api/monitors/not-a-uuid/check", token: f.token, code: http.StatusBadRequest},
		{name: "unknown monitor", path: "/api/monitors/" + uuid.NewString() + "/check", token: f.token, code: http.StatusNotFound},
		{name: "someone else's monitor", path: "/api/monitors/" + otherID + "/check", token: f.token, code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, tt.path, tt.token)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	assert.Empty(t, f.jobs.jobs)
}

func TestGetMonitorChecks(t *testing.T) {
	f := newFixture(t)
	f.monitors.checks = []models.CheckResult{{
		BaseModel:    models.BaseModel{ID: "chk-1"},
		MonitorID:    f.monitor.ID,
		Status:       types.CheckDown,
		ResponseTime: 120,
		StatusCode:   503,
		Message:      "Expected 200, got 503",
		CheckedAt:    time.Now(),
	}}

	w := f.do(http.MethodGet, "/api/monitors/"+f.monitor.ID+"/checks?limit=500", f.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, f.monitors.limit)

	var checks []handlers.CheckSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checks))
	require.Len(t, checks, 1)
	assert.Equal(t, "down", checks[0].Status)
	assert.Equal(t, 503, checks[0].StatusCode)

	w = f.do(http.MethodGet, "/api/monitors/"+f.monitor.ID+"/checks?limit=zero", f.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMonitorIncidents(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/monitors/"+f.monitor.ID+"/incidents", f.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"status":"open"`))
	assert.Contains(t, w.Body.String(), `"resolved_at":null`)
}

func TestWebSocketRequiresToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/ws", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/ws", f.token)
	assert.Equal(t, http.StatusSwitchingProtocols, w.Code)
}
