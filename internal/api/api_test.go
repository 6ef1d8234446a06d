package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/sprinkler-controller/db"
	"github.com/thatsimonsguy/sprinkler-controller/internal/clock"
	"github.com/thatsimonsguy/sprinkler-controller/internal/gpio"
	"github.com/thatsimonsguy/sprinkler-controller/internal/scheduler"
)

func setupTestServer(t *testing.T) (*Server, *scheduler.Scheduler, *gpio.Fake) {
	t.Helper()

	dbConn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })

	driver := gpio.NewFake()
	clk := clock.NewFake(time.Date(2026, time.June, 15, 5, 0, 0, 0, time.UTC))
	sched, err := scheduler.New(db.NewTimerStore(dbConn), driver, clk, scheduler.Options{
		Location: time.UTC,
		Outputs:  map[string]bool{"valve1": true, "valve2": true},
	})
	require.NoError(t, err)

	return NewServer(sched), sched, driver
}

func validRequest() TimerRequest {
	return TimerRequest{
		Name:            "front lawn",
		OutputID:        "valve1",
		StartTime:       "06:00",
		DurationSeconds: 300,
	}
}

func postTimer(t *testing.T, server *Server, req TimerRequest) TimerResponse {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/timers", bytes.NewReader(body))
	server.handleTimers(w, r)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp TimerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateTimer(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp := postTimer(t, server, validRequest())
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "front lawn", resp.Name)
	assert.Equal(t, "valve1", resp.OutputID)
	assert.Equal(t, "06:00:00", resp.StartTime)
	assert.Equal(t, 300, resp.DurationSeconds)
	assert.True(t, resp.Enabled, "enabled defaults to true when omitted")
}

func TestCreateTimerInvalidJSON(t *testing.T) {
	server, _, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/timers", bytes.NewReader([]byte("{not json")))
	server.handleTimers(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid JSON payload", resp.Error)
}

func TestCreateTimerValidationErrors(t *testing.T) {
	server, _, _ := setupTestServer(t)

	tests := []struct {
		name   string
		mutate func(*TimerRequest)
	}{
		{"bad start time", func(r *TimerRequest) { r.StartTime = "6am" }},
		{"unknown output", func(r *TimerRequest) { r.OutputID = "valve9" }},
		{"zero duration", func(r *TimerRequest) { r.DurationSeconds = 0 }},
		{"bad weekday", func(r *TimerRequest) { r.Days = []string{"someday"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			body, err := json.Marshal(req)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/timers", bytes.NewReader(body))
			server.handleTimers(w, r)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestListTimers(t *testing.T) {
	server, _, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	server.handleTimers(w, httptest.NewRequest(http.MethodGet, "/api/timers", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String(), "empty set encodes as an empty array")

	created := postTimer(t, server, validRequest())

	w = httptest.NewRecorder()
	server.handleTimers(w, httptest.NewRequest(http.MethodGet, "/api/timers", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp []TimerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, created, resp[0])
}

func TestGetTimerByID(t *testing.T) {
	server, _, _ := setupTestServer(t)
	created := postTimer(t, server, validRequest())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/timers/"+created.ID, nil)
	server.handleTimerByID(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp TimerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created, resp)
}

func TestGetTimerNotFound(t *testing.T) {
	server, _, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/timers/no-such-id", nil)
	server.handleTimerByID(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateTimer(t *testing.T) {
	server, _, _ := setupTestServer(t)
	created := postTimer(t, server, validRequest())

	req := validRequest()
	req.Name = "front lawn, longer soak"
	req.DurationSeconds = 600
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/api/timers/"+created.ID, bytes.NewReader(body))
	server.handleTimerByID(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TimerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID, "update must not change the id")
	assert.Equal(t, 600, resp.DurationSeconds)
}

func TestUpdateTimerNotFound(t *testing.T) {
	server, _, _ := setupTestServer(t)

	body, err := json.Marshal(validRequest())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/api/timers/no-such-id", bytes.NewReader(body))
	server.handleTimerByID(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteTimer(t *testing.T) {
	server, sched, _ := setupTestServer(t)
	created := postTimer(t, server, validRequest())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/timers/"+created.ID, nil)
	server.handleTimerByID(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, sched.List())

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodDelete, "/api/timers/"+created.ID, nil)
	server.handleTimerByID(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOutputsSnapshot(t *testing.T) {
	server, sched, _ := setupTestServer(t)
	postTimer(t, server, validRequest())

	w := httptest.NewRecorder()
	server.handleOutputs(w, httptest.NewRequest(http.MethodGet, "/api/outputs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp OutputsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]bool{"valve1": false, "valve2": false}, resp.Outputs)
	assert.Empty(t, resp.Faults)

	sched.Tick(time.Date(2026, time.June, 15, 6, 0, 0, 0, time.UTC))

	w = httptest.NewRecorder()
	server.handleOutputs(w, httptest.NewRequest(http.MethodGet, "/api/outputs", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Outputs["valve1"])
}

func TestMethodNotAllowed(t *testing.T) {
	server, _, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	server.handleTimers(w, httptest.NewRequest(http.MethodDelete, "/api/timers", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	server.handleOutputs(w, httptest.NewRequest(http.MethodPost, "/api/outputs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
