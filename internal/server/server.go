// Package server exposes the HTTP API: task submission, task status
// and health endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfbatch/internal/metrics"
	"github.com/local/pdfbatch/internal/statuscheck"
	"github.com/local/pdfbatch/internal/store"
	"github.com/local/pdfbatch/internal/task"
)

// Queue models what the API needs from the task queue.
type Queue interface {
	Enqueue(ctx context.Context, payload []byte) error
}

// Dependencies wires the server to the rest of the service.
type Dependencies struct {
	Queue   Queue
	Status  *store.TaskStore
	Outputs *store.OutputStore
	Checker *statuscheck.Checker
	// Defaults fill the output fields a submitted request leaves unset.
	Defaults task.Defaults
}

// Server handles the HTTP API.
type Server struct {
	deps Dependencies
}

func New(deps Dependencies) *Server {
	return &Server{deps: deps}
}

// RegisterRoutes attaches all handlers to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/health/deep", s.handleDeepHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/tasks", s.handleSubmit)
	mux.HandleFunc("/tasks/", s.handleStatus)
}

type submitRequest struct {
	Kind   task.Kind       `json:"kind"`
	Params json.RawMessage `json:"params"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	// Decode and validate up front so bad requests fail at submission
	// instead of surfacing later as failed tasks.
	params, err := task.DecodeParameters(req.Kind, req.Params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	task.ApplyDefaults(params, s.deps.Defaults)
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Re-encode so the worker executes the defaulted parameters that
	// were validated, not the raw submission.
	raw, err := json.Marshal(params)
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	taskID := uuid.New().String()
	envelope, err := json.Marshal(task.Request{TaskID: taskID, Kind: req.Kind, Params: raw})
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	now := time.Now()
	if err := s.deps.Status.Set(ctx, taskID, store.Status{
		State: "queued",
		Kind:  string(req.Kind),
		Start: &now,
	}); err != nil {
		log.Error().Err(err).Str("task_id", taskID).Msg("failed to store queued status")
	}
	if err := s.deps.Queue.Enqueue(ctx, envelope); err != nil {
		log.Error().Err(err).Str("task_id", taskID).Msg("enqueue failed")
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}

	log.Info().Str("task_id", taskID).Str("kind", string(req.Kind)).Msg("task queued")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(submitResponse{TaskID: taskID})
}

type statusResponse struct {
	TaskID  string       `json:"task_id"`
	Status  store.Status `json:"status"`
	Outputs []string     `json:"outputs,omitempty"`
	Skipped []string     `json:"skipped,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	taskID := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if taskID == "" || strings.Contains(taskID, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	ctx := r.Context()
	st, ok, err := s.deps.Status.Get(ctx, taskID)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	resp := statusResponse{TaskID: taskID, Status: st}
	if s.deps.Outputs != nil {
		if outs, err := s.deps.Outputs.Outputs(ctx, taskID); err == nil {
			resp.Outputs = outs
		}
		if skipped, err := s.deps.Outputs.Skipped(ctx, taskID); err == nil {
			resp.Skipped = skipped
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleDeepHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary := s.deps.Checker.Summary(ctx)
	w.Header().Set("Content-Type", "application/json")
	if !s.deps.Checker.Healthy(summary) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(summary)
}
