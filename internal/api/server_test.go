package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbias/app"
	"linkbias/domain/run"
	"linkbias/internal"
	"linkbias/internal/errors"
	"linkbias/internal/testkit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, maxRuns int) (*Server, *testkit.InMemoryRunRepository) {
	t.Helper()
	kit := testkit.NewTestKit()
	logger := internal.NewLoggerTo(internal.LogLevelError, io.Discard)
	svc := app.NewSimulationService(kit.RunRepository(), kit.RNGAdapter(), logger, 2)
	return NewServer(svc, ServerConfig{MaxConcurrentRuns: maxRuns, KeepTrials: true}, logger), kit.RunRepository()
}

func quickPayload() []byte {
	body, _ := json.Marshal(map[string]any{
		"kind":       "compare",
		"population": testkit.SmallPopulation(),
		"simulation": testkit.QuickSimulation(),
		"modes":      []string{"none", "rescale"},
	})
	return body
}

func do(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestCreateAndGetSimulation(t *testing.T) {
	s, repo := newTestServer(t, 2)

	w := do(s, http.MethodPost, "/api/simulations", quickPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created run.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, run.KindCompare, created.Manifest.Kind)
	assert.Len(t, created.Summaries, 2)
	assert.Len(t, created.Trials, 2)
	assert.Equal(t, 1, repo.Len())

	w = do(s, http.MethodGet, "/api/simulations/"+created.Manifest.RunID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got run.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.Manifest.Fingerprint, got.Manifest.Fingerprint)
	assert.Empty(t, got.Trials, "trials are opt-in on GET")

	w = do(s, http.MethodGet, "/api/simulations/"+created.Manifest.RunID.String()+"?trials=true", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Trials, 2)

	w = do(s, http.MethodGet, "/api/simulations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Runs  []run.Manifest `json:"runs"`
		Count int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestSimulationReport(t *testing.T) {
	s, _ := newTestServer(t, 1)
	w := do(s, http.MethodPost, "/api/simulations", quickPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	var created run.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(s, http.MethodGet, "/api/simulations/"+created.Manifest.RunID.String()+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "| none |")

	w = do(s, http.MethodGet, "/api/simulations/"+created.Manifest.RunID.String()+"/report?format=html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<table>")
}

func TestCreateSimulation_Errors(t *testing.T) {
	s, repo := newTestServer(t, 1)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed body", `{"kind":`, http.StatusBadRequest, errors.CodeInvalidInput},
		{"unknown kind", `{"kind":"bogus"}`, http.StatusBadRequest, errors.CodeConfigInvalid},
		{"unknown mode", `{"kind":"compare","modes":["nope"]}`, http.StatusBadRequest, errors.CodeConfigInvalid},
		{"population file", `{"population":{"file":"/etc/passwd"}}`, http.StatusBadRequest, errors.CodeInvalidInput},
		{"bad precision", `{"population":{"size":20000},"simulation":{"trials":5,"sample_size":100,"precision":1.5}}`,
			http.StatusBadRequest, errors.CodeInvalidPrecision},
		{"population over limit", `{"population":{"size":50000000}}`, http.StatusBadRequest, errors.CodeConfigInvalid},
		{"population too small", `{"population":{"size":100},"simulation":{"trials":3,"sample_size":100,"precision":0.5}}`,
			http.StatusUnprocessableEntity, errors.CodeFitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/api/simulations", []byte(tt.body))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
		})
	}
	assert.Zero(t, repo.Len())
}

func TestCreateSimulation_Busy(t *testing.T) {
	s, _ := newTestServer(t, 1)
	require.True(t, s.runs.TryAcquire(1))
	defer s.runs.Release(1)

	w := do(s, http.MethodPost, "/api/simulations", quickPayload())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), errors.CodeBusy)
}

func TestGetSimulation_NotFoundAndBadID(t *testing.T) {
	s, _ := newTestServer(t, 1)

	w := do(s, http.MethodGet, "/api/simulations/0191e8a0-0000-7000-8000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodGet, "/api/simulations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodGet, "/api/simulations?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, 1)
	w := do(s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
