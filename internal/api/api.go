// Package api exposes the run control surface over HTTP. One run is
// active at a time; the engine executes in a background goroutine and
// the handlers only read published snapshots, so no request ever
// blocks on the browser.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"formrunner/internal/ingest"
	"formrunner/internal/report"
	"formrunner/internal/run"
)

// AggregatorFactory builds a fresh aggregator (with its own browser
// session) for one run.
type AggregatorFactory func(runID string) (*run.Aggregator, error)

// StartRequest is the POST /api/runs payload. Rows are used directly
// when present; otherwise SourceURL is fetched and parsed.
type StartRequest struct {
	SourceURL string              `json:"sourceUrl,omitempty"`
	Rows      []map[string]string `json:"rows,omitempty"`
}

type job struct {
	id     string
	agg    *run.Aggregator
	cancel context.CancelFunc
	done   chan struct{}
	rep    report.Report
}

func (j *job) running() bool {
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

// Handler is the chi router plus the single-run state behind it.
type Handler struct {
	factory AggregatorFactory
	fetch   func(string) (ingest.Rows, error)
	logger  zerolog.Logger

	mu      sync.Mutex
	current *job
}

func NewHandler(factory AggregatorFactory, logger zerolog.Logger) *Handler {
	return &Handler{
		factory: factory,
		fetch:   func(url string) (ingest.Rows, error) { return ingest.Fetch(nil, url) },
		logger:  logger.With().Str("comp", "api").Logger(),
	}
}

// Router assembles the API routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/runs", func(r chi.Router) {
		r.Post("/", h.startRun)
		r.Route("/current", func(r chi.Router) {
			r.Get("/", h.currentStats)
			r.Get("/log", h.currentLog)
			r.Post("/cancel", h.cancelRun)
			r.Get("/report", h.currentReport)
		})
	})
	return r
}

func (h *Handler) startRun(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rows := ingest.Rows(req.Rows)
	if len(rows) == 0 {
		if req.SourceURL == "" {
			writeError(w, http.StatusBadRequest, "either rows or sourceUrl is required")
			return
		}
		var err error
		rows, err = h.fetch(req.SourceURL)
		if err != nil {
			writeError(w, http.StatusBadGateway, "fetch rows: "+err.Error())
			return
		}
	}
	if len(rows) == 0 {
		writeError(w, http.StatusBadRequest, "source contains no data rows")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil && h.current.running() {
		writeError(w, http.StatusConflict, "a run is already active")
		return
	}

	id := uuid.NewString()
	agg, err := h.factory(id)
	if err != nil {
		h.logger.Error().Err(err).Msg("start run")
		writeError(w, http.StatusInternalServerError, "start run: "+err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{id: id, agg: agg, cancel: cancel, done: make(chan struct{})}
	h.current = j

	go func() {
		defer close(j.done)
		defer cancel()
		j.rep = agg.Execute(ctx, rows)
	}()

	h.logger.Info().Str("run_id", id).Int("records", len(rows)).Msg("run started")
	writeJSON(w, http.StatusAccepted, map[string]any{"runId": id, "records": len(rows)})
}

func (h *Handler) currentStats(w http.ResponseWriter, r *http.Request) {
	j := h.job()
	if j == nil {
		writeError(w, http.StatusNotFound, "no run has been started")
		return
	}
	writeJSON(w, http.StatusOK, j.agg.Stats())
}

func (h *Handler) currentLog(w http.ResponseWriter, r *http.Request) {
	j := h.job()
	if j == nil {
		writeError(w, http.StatusNotFound, "no run has been started")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	lines := j.agg.Progress().Lines()
	if len(lines) > 0 {
		_, _ = w.Write([]byte(strings.Join(lines, "\n") + "\n"))
	}
}

func (h *Handler) cancelRun(w http.ResponseWriter, r *http.Request) {
	j := h.job()
	if j == nil {
		writeError(w, http.StatusNotFound, "no run has been started")
		return
	}
	if !j.running() {
		writeError(w, http.StatusConflict, "run already finished")
		return
	}
	j.cancel()
	writeJSON(w, http.StatusAccepted, map[string]any{"runId": j.id, "cancelling": true})
}

func (h *Handler) currentReport(w http.ResponseWriter, r *http.Request) {
	j := h.job()
	if j == nil {
		writeError(w, http.StatusNotFound, "no run has been started")
		return
	}
	if j.running() {
		writeError(w, http.StatusConflict, "run still in progress")
		return
	}
	writeJSON(w, http.StatusOK, j.rep)
}

func (h *Handler) job() *job {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
