// Package api exposes the workflow engine over HTTP. Kicking off a
// workflow is synchronous: the response reports where the run settled
// (completed, failed, or paused awaiting approval).
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridianhq/steward"
	"github.com/meridianhq/steward/engine"
	"github.com/meridianhq/steward/workflow"
)

// API wires the HTTP handlers over an engine and checkpoint store.
type API struct {
	eng    *engine.Engine
	store  workflow.Store
	logger *slog.Logger
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// New creates an API over the given engine and checkpoint store.
func New(eng *engine.Engine, store workflow.Store, opts ...Option) *API {
	a := &API{
		eng:    eng,
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/v1/workflows", func(r chi.Router) {
		r.Post("/daily-audit", a.startDailyAudit)
		r.Post("/routine", a.startRoutine)
		r.Post("/approve/{threadID}", a.approve)
		r.Get("/status/{threadID}", a.status)
		r.Get("/checkpoints/{threadID}", a.checkpoints)
		r.Delete("/{threadID}", a.cancel)
	})

	r.Get("/healthz", a.health)

	return r
}

// ── response helpers ────────────────────────────────

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("write response", slog.String("error", err.Error()))
	}
}

// writeError maps sentinel errors onto HTTP status codes: missing
// threads are 404, illegal transitions 409, storage outages 503,
// everything else 500.
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, steward.ErrThreadNotFound),
		errors.Is(err, steward.ErrCheckpointNotFound),
		errors.Is(err, steward.ErrUnknownWorkflow):
		status = http.StatusNotFound
	case errors.Is(err, steward.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, steward.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", slog.String("error", err.Error()))
	}

	a.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
