package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/llm/providers"
	"github.com/smithisrealdev/aigo-engine/internal/planner"
	"github.com/smithisrealdev/aigo-engine/internal/progress"
	"github.com/smithisrealdev/aigo-engine/internal/queue"
	"github.com/smithisrealdev/aigo-engine/internal/replan"
	"github.com/smithisrealdev/aigo-engine/internal/service"
	"github.com/smithisrealdev/aigo-engine/internal/store"
	"github.com/smithisrealdev/aigo-engine/internal/tool"
	"github.com/smithisrealdev/aigo-engine/internal/tool/builtins"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

const intentResponse = `{
	"destination_city": "Lisbon",
	"destination_country": "Portugal",
	"start_date": "2026-09-12",
	"duration_days": 2,
	"currency": "EUR"
}`

const daysResponse = `[
	{
		"title": "Alfama",
		"activities": [
			{"title": "Castelo de Sao Jorge", "category": "sightseeing", "time": "10:00",
			 "duration": 120, "cost": 15, "lat": 38.7139, "lng": -9.1335, "is_outdoor": true}
		]
	},
	{
		"title": "Belem",
		"activities": [
			{"title": "Jeronimos Monastery", "category": "sightseeing", "time": "09:30",
			 "duration": 90, "cost": 12, "lat": 38.6979, "lng": -9.2068}
		]
	}
]`

type stubSynth struct{}

func (s *stubSynth) Synthesize(ctx context.Context, toolName string, input map[string]any, reason string) (map[string]any, float64, error) {
	return map[string]any{}, 0.5, nil
}

func newTestServer(t *testing.T, responses ...string) *Server {
	t.Helper()

	provider := providers.NewMockProvider(responses...)
	reg := tool.NewRegistry()
	require.NoError(t, builtins.RegisterAll(reg))
	health := tool.NewHealthTracker(tool.DefaultBypassThreshold)
	caller := tool.NewCaller(reg, health, &stubSynth{})

	st := store.NewMemoryStore()
	p := planner.New(provider, caller, st, planner.WithMaxRetries(0))
	r := replan.New(provider, caller, st, replan.WithMaxRetries(0))

	q := queue.New(queue.WithWorkers(2))
	t.Cleanup(q.Close)
	tracker := progress.NewTracker(progress.NewMemorySubstrate())

	return NewServer(service.New(p, r, st, q, tracker, service.WithHealth(provider, health)))
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func waitCompleted(t *testing.T, h http.Handler, taskID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := get(t, h, "/v1/tasks/"+taskID)
		if rec.Code != http.StatusOK {
			return false
		}
		var u progress.Update
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
		return u.Status == types.TaskStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCreatePlanAndFetch(t *testing.T) {
	srv := newTestServer(t, intentResponse, daysResponse)
	h := srv.Handler()

	rec := postJSON(t, h, "/v1/plans", `{"prompt": "a weekend in Lisbon"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created createPlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.PlanID)
	require.NotEmpty(t, created.TaskID)

	waitCompleted(t, h, created.TaskID)

	planRec := get(t, h, "/v1/plans/"+created.PlanID)
	require.Equal(t, http.StatusOK, planRec.Code)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(planRec.Body.Bytes(), &snap))
	assert.Equal(t, "Lisbon", snap["destination_city"])
	assert.EqualValues(t, 1, snap["version"])
}

func TestCreatePlanRejectsEmptyPrompt(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := postJSON(t, h, "/v1/plans", `{"prompt": ""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.PLAN_VALIDATION_FAILED), resp.Code)
}

func TestGetPlanNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv.Handler(), "/v1/plans/"+types.NewID().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPlanMalformedID(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv.Handler(), "/v1/plans/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplanRejectsInvalidTrigger(t *testing.T) {
	srv := newTestServer(t, intentResponse, daysResponse)
	h := srv.Handler()

	rec := postJSON(t, h, "/v1/plans", `{"prompt": "a weekend in Lisbon"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created createPlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	waitCompleted(t, h, created.TaskID)

	bad := postJSON(t, h, "/v1/plans/"+created.PlanID+"/replan", `{"kind": "earthquake"}`)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestStreamTaskEmitsTerminalEvent(t *testing.T) {
	srv := newTestServer(t, intentResponse, daysResponse)
	h := srv.Handler()

	rec := postJSON(t, h, "/v1/plans", `{"prompt": "a weekend in Lisbon"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created createPlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	waitCompleted(t, h, created.TaskID)

	// The task is already terminal, so the stream replays the final state
	// and closes.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/"+created.TaskID+"/stream", nil).WithContext(ctx)
	streamRec := httptest.NewRecorder()
	h.ServeHTTP(streamRec, req)

	require.Equal(t, http.StatusOK, streamRec.Code)
	assert.Equal(t, "text/event-stream", streamRec.Header().Get("Content-Type"))

	var last progress.Update
	scanner := bufio.NewScanner(bytes.NewReader(streamRec.Body.Bytes()))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &last))
	}
	assert.Equal(t, types.TaskStatusCompleted, last.Status)
}

func TestHistoryAfterReplan(t *testing.T) {
	impact := `[{"day_number": 1, "activity_index": 0, "impact_level": "major",
		"reason": "storm", "requires_substitution": true}]`
	replacement := `{"title": "Tile Museum", "category": "sightseeing", "duration": 90,
		"cost": 10, "lat": 38.7249, "lng": -9.1134, "is_outdoor": false}`

	srv := newTestServer(t, intentResponse, daysResponse, impact, replacement)
	h := srv.Handler()

	rec := postJSON(t, h, "/v1/plans", `{"prompt": "a weekend in Lisbon"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created createPlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	waitCompleted(t, h, created.TaskID)

	replanRec := postJSON(t, h, fmt.Sprintf("/v1/plans/%s/replan", created.PlanID),
		`{"kind": "weather", "description": "storm inbound"}`)
	require.Equal(t, http.StatusAccepted, replanRec.Code)

	var submitted replanResponse
	require.NoError(t, json.Unmarshal(replanRec.Body.Bytes(), &submitted))
	assert.Equal(t, 2, submitted.NewVersionHint)
	waitCompleted(t, h, submitted.TaskID)

	histRec := get(t, h, "/v1/plans/"+created.PlanID+"/history")
	require.Equal(t, http.StatusOK, histRec.Code)

	var hist struct {
		History []map[string]any `json:"history"`
	}
	require.NoError(t, json.Unmarshal(histRec.Body.Bytes(), &hist))
	require.Len(t, hist.History, 1)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var report service.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, types.HealthStateHealthy, report.Status)
	assert.True(t, report.LLM.IsHealthy())
}
