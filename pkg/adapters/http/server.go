package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/pdasim"
	"github.com/aretw0/pdasim/internal/compiler"
	"github.com/aretw0/pdasim/internal/logging"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/ports"
	"github.com/aretw0/pdasim/pkg/runner"
	"github.com/aretw0/pdasim/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxSimulateBudget caps the step budget a client may request from /simulate.
const MaxSimulateBudget = 10000

// Server exposes persisted runs and one-shot simulations over HTTP.
type Server struct {
	Sessions *session.Manager
	Loader   ports.DefinitionLoader
	Streams  *StreamManager

	hooks    domain.LifecycleHooks
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLoader serves /definitions and lets runs start from a definition ID.
func WithLoader(l ports.DefinitionLoader) Option {
	return func(s *Server) {
		s.Loader = l
	}
}

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLifecycleHooks is installed into the engines built by /simulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Server) {
		s.hooks = hooks
	}
}

// WithMetrics mounts /metrics for the given gatherer.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates the HTTP handler for a session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/simulate", s.Simulate)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.ListRuns)
		r.Post("/", s.StartRun)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", s.GetRun)
			r.Delete("/", s.DeleteRun)
			r.Post("/advance", s.AdvanceRun)
			r.Get("/traces", s.AcceptingTraces)
			r.Get("/trace/{configID}", s.GetTrace)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	if s.Loader != nil {
		r.Get("/definitions", s.ListDefinitions)
		r.Get("/definitions/{id}", s.GetDefinition)
	}
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartRunRequest is the body of POST /runs.
// Exactly one of Definition and DefinitionID is required; Input overrides
// the definition's input string when set.
type StartRunRequest struct {
	RunID        string             `json:"run_id,omitempty"`
	Definition   *domain.Definition `json:"definition,omitempty"`
	DefinitionID string             `json:"definition_id,omitempty"`
	Input        *string            `json:"input,omitempty"`
}

// StartRunResponse is returned by POST /runs.
type StartRunResponse struct {
	RunID    string          `json:"run_id"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

// SimulateRequest is the body of POST /simulate.
type SimulateRequest struct {
	Definition   domain.Definition `json:"definition"`
	Input        *string           `json:"input,omitempty"`
	Budget       int               `json:"budget,omitempty"`
	Dedup        bool              `json:"dedup,omitempty"`
	StopOnAccept bool              `json:"stop_on_accept,omitempty"`
}

// ErrorResponse carries every validation problem of a rejected definition.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "pdasim-http",
		"version": pdasim.Version,
	})
}

// StartRun handles POST /runs.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	var body StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var def domain.Definition
	switch {
	case body.Definition != nil && body.DefinitionID != "":
		s.writeError(w, http.StatusBadRequest, errors.New("definition and definition_id are mutually exclusive"))
		return
	case body.Definition != nil:
		def = *body.Definition
		if err := compiler.Expand(&def); err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
	case body.DefinitionID != "":
		if s.Loader == nil {
			s.writeError(w, http.StatusBadRequest, errors.New("no definition library configured"))
			return
		}
		loaded, err := s.Loader.Load(r.Context(), body.DefinitionID)
		if err != nil {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		def = *loaded
	default:
		s.writeError(w, http.StatusBadRequest, errors.New("definition or definition_id is required"))
		return
	}
	if body.Input != nil {
		def.InputString = *body.Input
	}

	id, snap, err := s.Sessions.Start(r.Context(), body.RunID, def)
	if err != nil {
		s.writeDomainError(w, "StartRun", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, StartRunResponse{RunID: id, Snapshot: snap})
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeDomainError(w, "ListRuns", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetRun handles GET /runs/{runID}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Snapshot(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeDomainError(w, "GetRun", err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// AdvanceRun handles POST /runs/{runID}/advance?steps=N.
func (s *Server) AdvanceRun(w http.ResponseWriter, r *http.Request) {
	steps := 1
	if raw := r.URL.Query().Get("steps"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxSimulateBudget {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid steps %q", raw))
			return
		}
		steps = n
	}

	runID := chi.URLParam(r, "runID")
	snap, err := s.Sessions.Advance(r.Context(), runID, steps)
	if err != nil {
		s.writeDomainError(w, "AdvanceRun", err)
		return
	}
	if payload, err := json.Marshal(snap); err == nil {
		s.Streams.Broadcast(runID, string(payload))
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// GetTrace handles GET /runs/{runID}/trace/{configID}.
func (s *Server) GetTrace(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "configID"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid configuration id: %w", err))
		return
	}
	trace, err := s.Sessions.Trace(r.Context(), chi.URLParam(r, "runID"), domain.ConfigID(id))
	if err != nil {
		s.writeDomainError(w, "GetTrace", err)
		return
	}
	s.writeJSON(w, http.StatusOK, trace)
}

// AcceptingTraces handles GET /runs/{runID}/traces.
func (s *Server) AcceptingTraces(w http.ResponseWriter, r *http.Request) {
	traces, err := s.Sessions.AcceptingTraces(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeDomainError(w, "AcceptingTraces", err)
		return
	}
	if traces == nil {
		traces = []domain.Trace{}
	}
	s.writeJSON(w, http.StatusOK, traces)
}

// DeleteRun handles DELETE /runs/{runID}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "runID")); err != nil {
		s.writeDomainError(w, "DeleteRun", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Simulate handles POST /simulate: a complete run that is not persisted.
func (s *Server) Simulate(w http.ResponseWriter, r *http.Request) {
	var body SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.Input != nil {
		body.Definition.InputString = *body.Input
	}
	budget := body.Budget
	switch {
	case budget <= 0:
		budget = runner.DefaultBudget
	case budget > MaxSimulateBudget:
		budget = MaxSimulateBudget
	}

	eng, err := pdasim.New(body.Definition, pdasim.WithLifecycleHooks(s.hooks), pdasim.WithLogger(s.logger))
	if err != nil {
		s.writeDomainError(w, "Simulate", err)
		return
	}
	opts := []runner.Option{runner.WithBudget(budget), runner.WithLogger(s.logger)}
	if body.Dedup {
		opts = append(opts, runner.WithDedup())
	}
	if body.StopOnAccept {
		opts = append(opts, runner.WithStopOnAccept())
	}
	res, err := eng.Run(r.Context(), opts...)
	if err != nil {
		s.writeDomainError(w, "Simulate", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// ListDefinitions handles GET /definitions.
func (s *Server) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Loader.List(r.Context())
	if err != nil {
		s.writeDomainError(w, "ListDefinitions", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetDefinition handles GET /definitions/{id}.
func (s *Server) GetDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.Loader.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

// -- Helpers --

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// writeDomainError maps core errors to status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, op string, err error) {
	var agg *automaton.AggregateError
	var syntax *compiler.SyntaxError
	switch {
	case errors.Is(err, domain.ErrRunNotFound), errors.Is(err, domain.ErrUnknownConfig):
		s.writeError(w, http.StatusNotFound, err)
	case errors.As(err, &agg):
		resp := ErrorResponse{Error: "invalid automaton"}
		for _, e := range automaton.ValidationErrors(err) {
			resp.Details = append(resp.Details, e.Error())
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.As(err, &syntax), errors.Is(err, domain.ErrInvalidCheckpoint):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.logger.Error(op+" failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}
