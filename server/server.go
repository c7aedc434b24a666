// Package server exposes the workflow engine over HTTP: start a run, resume
// a suspended run, health and metrics endpoints.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mshields/arflow/flow"
	"github.com/mshields/arflow/flow/store"
)

// Server handles the host-facing run API.
//
// Suspended runs are addressed by run ID on the wire; the server keeps the
// run→checkpoint mapping so callers never handle checkpoint IDs directly.
// The checkpoint itself is the durable artifact — the mapping is an
// in-process convenience index and is rebuilt empty on restart, in which
// case clients can still resume via the checkpoint ID they received.
type Server struct {
	exec *flow.Executor

	mu          sync.Mutex
	checkpoints map[string]string // runID -> pending checkpointID
}

// StartRequest is the body of POST /runs.
type StartRequest struct {
	InitialState map[string]any `json:"initialState"`
}

// ResumeRequest is the body of POST /runs/{id}/resume.
type ResumeRequest struct {
	Decision any `json:"decision"`
}

// RunResponse is the body of every run endpoint response.
type RunResponse struct {
	RunID        string         `json:"runId,omitempty"`
	Status       string         `json:"status"`
	FinalState   map[string]any `json:"finalState,omitempty"`
	CheckpointID string         `json:"checkpointId,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// NewHandler builds the HTTP handler. A nil registry disables the /metrics
// endpoint.
func NewHandler(exec *flow.Executor, registry *prometheus.Registry) http.Handler {
	s := &Server{
		exec:        exec,
		checkpoints: make(map[string]string),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/runs", s.startRun)
	r.Post("/runs/{id}/resume", s.resumeRun)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	return r
}

// startRun handles POST /runs.
func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, RunResponse{Status: "failed", Error: "invalid request body"})
		return
	}

	result, err := s.exec.Start(r.Context(), flow.State(req.InitialState))
	if err != nil {
		s.writeError(w, "", err)
		return
	}
	s.writeResult(w, result)
}

// resumeRun handles POST /runs/{id}/resume. The path ID may be either a run
// ID known to this server or a checkpoint ID.
func (s *Server) resumeRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, RunResponse{Status: "failed", Error: "invalid request body"})
		return
	}

	checkpointID := id
	s.mu.Lock()
	if cp, ok := s.checkpoints[id]; ok {
		checkpointID = cp
	}
	s.mu.Unlock()

	result, err := s.exec.Resume(r.Context(), checkpointID, req.Decision)
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	s.mu.Lock()
	delete(s.checkpoints, id)
	s.mu.Unlock()

	s.writeResult(w, result)
}

func (s *Server) writeResult(w http.ResponseWriter, result flow.RunResult) {
	switch result.Status {
	case flow.StatusSuspended:
		s.mu.Lock()
		s.checkpoints[result.RunID] = result.CheckpointID
		s.mu.Unlock()

		writeJSON(w, http.StatusAccepted, RunResponse{
			RunID:        result.RunID,
			Status:       string(result.Status),
			CheckpointID: result.CheckpointID,
			Payload:      result.Payload,
		})
	default:
		writeJSON(w, http.StatusOK, RunResponse{
			RunID:      result.RunID,
			Status:     string(result.Status),
			FinalState: result.FinalState,
		})
	}
}

// writeError maps engine errors onto HTTP statuses. Fatal run errors are
// surfaced verbatim; nothing is silently defaulted.
func (s *Server) writeError(w http.ResponseWriter, runID string, err error) {
	var conflict *flow.CheckpointConflictError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &conflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, RunResponse{RunID: runID, Status: "failed", Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body RunResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
