// Package serve exposes the learning engine over a REST API with a
// WebSocket progress stream, so trackers and dashboards can trigger
// runs and browse history without the CLI.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shahbajlive/templar/internal/history"
	"github.com/shahbajlive/templar/internal/learn"
	"github.com/shahbajlive/templar/internal/output"
	"github.com/shahbajlive/templar/internal/source"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// Server wires the learning pipeline, run history, and progress hub
// behind HTTP handlers.
type Server struct {
	src      source.Source
	learnCfg learn.Config
	store    *history.Store
	hub      *Hub
}

// NewServer creates a server over the given source and history store.
// The store may be nil, in which case runs are not persisted.
func NewServer(src source.Source, learnCfg learn.Config, store *history.Store) *Server {
	return &Server{
		src:      src,
		learnCfg: learnCfg,
		store:    store,
		hub:      NewHub(),
	}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/learn", s.handleLearn)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/report", s.handleRunReport)
		r.Get("/ws", s.hub.HandleWS)
	})

	return r
}

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requestLogger logs each request with method, path, status, and timing.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, output.HealthResponse{
		Status:      "ok",
		Version:     Version,
		GeneratedAt: time.Now().UTC(),
	})
}

// LearnRequest is the payload for triggering a learning run. An empty
// or missing ID list learns from everything the source offers.
type LearnRequest struct {
	IDs          []string `json:"ids,omitempty"`
	TemplateName string   `json:"template_name,omitempty"`
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req LearnRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON payload: "+err.Error())
			return
		}
	}

	cfg := s.learnCfg
	if req.TemplateName != "" {
		cfg.TemplateName = req.TemplateName
	}

	learner := learn.New(s.src, cfg)
	learner.OnProgress(func(phase learn.Phase, detail string) {
		s.hub.Broadcast(Event{Type: "progress", Phase: string(phase), Detail: detail, Time: time.Now().UTC()})
	})

	var result *learn.Result
	var err error
	if len(req.IDs) == 0 {
		result, err = learner.LearnAll(r.Context())
	} else {
		result, err = learner.Learn(r.Context(), req.IDs)
	}
	if err != nil {
		if errors.Is(err, learn.ErrNoExamples) {
			writeError(w, http.StatusUnprocessableEntity, "no_examples", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "learn_failed", err.Error())
		return
	}

	if s.store != nil {
		if err := s.store.Save(result); err != nil {
			slog.Error("persist run failed", "run_id", result.RunID, "error", err)
		}
	}

	s.hub.Broadcast(Event{Type: "run_completed", RunID: result.RunID, Time: time.Now().UTC()})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no_history", "run history is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	runs, err := s.store.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(runs),
		"runs":  runs,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	result, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	result, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(output.MarkdownReport(result)))
}

// loadRun resolves the {runID} route parameter against the store,
// writing the error response itself on failure.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*learn.Result, bool) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no_history", "run history is not configured")
		return nil, false
	}

	runID := chi.URLParam(r, "runID")
	result, err := s.store.Get(runID)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "run not found: "+runID)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history_failed", err.Error())
		return nil, false
	}
	return result, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, output.NewErrorWithCode(code, msg))
}
