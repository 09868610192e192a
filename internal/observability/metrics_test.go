package observability

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithisrealdev/aigo-engine/internal/tool"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()

	m.ObserveToolCall("weather", tool.SourceLive, 120*time.Millisecond, true)
	m.ObserveToolCall("flights", tool.SourceFallback, 2*time.Second, false)
	m.RecordProgressUpdate(types.TaskKindGeneration, types.TaskStatusProgress)
	m.RecordSubscriberDropped()
	m.RecordJobStart(types.TaskKindReplan)
	m.RecordJobDone(types.TaskKindReplan, types.TaskStatusCompleted, 42*time.Second)
	m.RecordJobRetry(types.TaskKindGeneration, types.ErrClassRateLimit)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `aigo_tool_calls_total{outcome="ok",source="live",tool="weather"} 1`)
	assert.Contains(t, body, `aigo_tool_calls_total{outcome="error",source="fallback",tool="flights"} 1`)
	assert.Contains(t, body, `aigo_progress_updates_total{kind="generation",status="progress"} 1`)
	assert.Contains(t, body, "aigo_progress_subscriber_dropped_total 1")
	assert.Contains(t, body, `aigo_jobs_done_total{kind="replan",status="completed"} 1`)
	assert.Contains(t, body, `aigo_job_retries_total{class="rate_limit",kind="generation"} 1`)
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	require.NotEmpty(t, out)
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, "shown")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &parsed))
	assert.Equal(t, "WARN", parsed["level"])
}
