// Package api exposes the engine over a small HTTP JSON surface. Plan and
// replan submissions return 202 with task identifiers; progress is polled
// or streamed as server-sent events.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/service"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// Server handles HTTP requests against a service.Engine.
type Server struct {
	engine *service.Engine
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a Server around an engine.
func NewServer(engine *service.Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/plans", s.handleCreatePlan)
	mux.HandleFunc("GET /v1/plans/{id}", s.handleGetPlan)
	mux.HandleFunc("GET /v1/plans/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /v1/plans/{id}/replan", s.handleReplan)
	mux.HandleFunc("GET /v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("GET /v1/tasks/{id}/stream", s.handleStreamTask)
	mux.HandleFunc("DELETE /v1/tasks/{id}", s.handleCancelTask)
	return mux
}

// handleHealth reports the engine's dependency health: the LLM provider
// probe plus per-tool call stats. An unhealthy provider turns the
// endpoint into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.engine.Health(r.Context())
	status := http.StatusOK
	if report.Status == types.HealthStateUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

type createPlanRequest struct {
	Prompt      string         `json:"prompt"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

type createPlanResponse struct {
	PlanID string `json:"plan_id"`
	TaskID string `json:"task_id"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewError(types.PLAN_VALIDATION_FAILED, "malformed request body"))
		return
	}

	planID, taskID, err := s.engine.SubmitGeneration(r.Context(), req.Prompt, req.Preferences)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, createPlanResponse{
		PlanID: planID.String(),
		TaskID: taskID.String(),
	})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r)
	if !ok {
		return
	}

	var (
		snap *itinerary.Snapshot
		err  error
	)
	if v := r.URL.Query().Get("version"); v != "" {
		var version int
		if _, convErr := fmt.Sscanf(v, "%d", &version); convErr != nil {
			writeError(w, types.NewError(types.PLAN_VALIDATION_FAILED, "version must be an integer"))
			return
		}
		snap, err = s.engine.GetPlanVersion(r.Context(), planID, version)
	} else {
		snap, err = s.engine.GetPlan(r.Context(), planID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r)
	if !ok {
		return
	}

	entries, err := s.engine.History(r.Context(), planID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

type replanResponse struct {
	TaskID         string `json:"task_id"`
	NewVersionHint int    `json:"new_version_hint"`
}

func (s *Server) handleReplan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r)
	if !ok {
		return
	}

	var trigger itinerary.ReplanTrigger
	if err := json.NewDecoder(r.Body).Decode(&trigger); err != nil {
		writeError(w, types.NewError(types.PLAN_VALIDATION_FAILED, "malformed request body"))
		return
	}

	taskID, hint, err := s.engine.SubmitReplan(r.Context(), planID, trigger)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, replanResponse{
		TaskID:         taskID.String(),
		NewVersionHint: hint,
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	u, err := s.engine.GetProgress(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// handleStreamTask streams progress updates as server-sent events until the
// task reaches a terminal status or the client disconnects.
func (s *Server) handleStreamTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, types.NewError(types.INTERNAL_ERROR, "streaming unsupported"))
		return
	}

	updates, cancel, err := s.engine.SubscribeProgress(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	// Send the current state first so late subscribers see where the task
	// is, then follow the live stream.
	if u, err := s.engine.GetProgress(r.Context(), taskID); err == nil {
		writeEvent(w, u)
		flusher.Flush()
		if u.Terminal() {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case u, open := <-updates:
			if !open {
				return
			}
			writeEvent(w, u)
			flusher.Flush()
			if u.Terminal() {
				return
			}
		}
	}
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.engine.Cancel(r.Context(), taskID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func pathID(w http.ResponseWriter, r *http.Request) (types.ID, bool) {
	id, err := types.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, types.NewError(types.PLAN_VALIDATION_FAILED, "malformed id"))
		return id, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeEvent(w http.ResponseWriter, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps engine error codes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := types.INTERNAL_ERROR
	message := err.Error()

	var engineErr *types.EngineError
	if errors.As(err, &engineErr) {
		code = engineErr.Code
		message = engineErr.Message
	}

	writeJSON(w, statusFor(code), errorResponse{
		Code:    string(code),
		Message: message,
	})
}

func statusFor(code types.ErrorCode) int {
	switch code {
	case types.PLAN_NOT_FOUND, types.STORE_NOT_FOUND, types.QUEUE_JOB_NOT_FOUND:
		return http.StatusNotFound
	case types.PLAN_VALIDATION_FAILED:
		return http.StatusBadRequest
	case types.STORE_VERSION_CONFLICT:
		return http.StatusConflict
	case types.QUEUE_CLOSED:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
