package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/kellyfolio/internal/events"
	"github.com/aristath/kellyfolio/internal/health"
	"github.com/aristath/kellyfolio/internal/history"
	"github.com/aristath/kellyfolio/internal/kelly"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(Config{
		Log:        zerolog.Nop(),
		Store:      store,
		Bus:        events.NewBus(zerolog.Nop()),
		Archiver:   nil,
		SolverCfg:  kelly.DefaultSolverConfig(),
		HealthInfo: health.New(store),
		DevMode:    true,
	})
}

const sampleAllocationBody = `{
	"candidates": [
		{
			"ticker": "ACME",
			"market_cap": 1000000,
			"scenarios": [
				{"thesis": "up", "intrinsic_value": 2000000, "probability": 0.6},
				{"thesis": "down", "intrinsic_value": 400000, "probability": 0.4}
			]
		}
	]
}`

func TestHandleAllocateReturnsAllocationsAndRunID(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/allocate", bytes.NewBufferString(sampleAllocationBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["run_id"])
	assert.NotEmpty(t, body["allocations"])
}

func TestHandleAllocateReturnsValidationProblemsWithoutResultOrError(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	body := `{"candidates": [{"ticker": "BAD", "market_cap": 1000000, "scenarios": []}]}`
	req := httptest.NewRequest(http.MethodPost, "/allocate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var envelope struct {
		RunID              string                   `json:"run_id"`
		Result             interface{}              `json:"result"`
		ValidationProblems []map[string]interface{} `json:"validation_problems"`
		Error              interface{}              `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.RunID)
	assert.Nil(t, envelope.Result)
	assert.Nil(t, envelope.Error)
	require.NotEmpty(t, envelope.ValidationProblems)
	assert.Equal(t, kelly.CodeNoScenarios, envelope.ValidationProblems[0]["code"])
}

func TestHandleAllocateRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/allocate", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetRunReturnsNotFoundForUnknownID(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/runs/does-not-exist", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetRunReturnsPersistedRunAfterAllocate(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/allocate", bytes.NewBufferString(sampleAllocationBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var allocateResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &allocateResp))
	runID := allocateResp["run_id"].(string)

	getReq := httptest.NewRequest(http.MethodGet, "/runs/"+runID, nil)
	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, getReq)

	require.Equal(t, http.StatusOK, getW.Code)
	var run history.Run
	require.NoError(t, json.Unmarshal(getW.Body.Bytes(), &run))
	assert.Equal(t, runID, run.ID)
}

func TestHandleHealthzReportsOK(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var report health.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "ok", report.Status)
}

func TestRequestIDMiddlewareSetsResponseHeader(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
