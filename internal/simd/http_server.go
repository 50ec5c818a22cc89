package simd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/internal/metrics"
	"github.com/GoSim-25-26J-441/sweep-core/internal/objective"
	"github.com/GoSim-25-26J-441/sweep-core/internal/report"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/logger"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/models"
)

const maxDefinitionBytes = 1 << 20

type HTTPServer struct {
	mux      *http.ServeMux
	store    *RunStore
	Executor *RunExecutor
	archive  ArchiveReader
}

func NewHTTPServer(store *RunStore, executor *RunExecutor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/sweeps", s.handleSweeps)
	s.mux.HandleFunc("/v1/sweeps/", s.handleSweepByID)

	return s
}

// SetArchive enables reads of archived runs.
func (s *HTTPServer) SetArchive(a ArchiveReader) {
	s.archive = a
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSweeps handles /v1/sweeps endpoint
func (s *HTTPServer) handleSweeps(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSweep(w, r)
	case http.MethodGet:
		s.handleListSweeps(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSweepByID handles /v1/sweeps/{id} and related endpoints
func (s *HTTPServer) handleSweepByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sweeps/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	actions := []struct {
		suffix string
		method string
		handle func(http.ResponseWriter, *http.Request, string)
	}{
		{":start", http.MethodPost, s.handleStartSweep},
		{":stop", http.MethodPost, s.handleStopSweep},
		{"/results", http.MethodGet, s.handleResults},
		{"/minimized", http.MethodGet, s.handleMinimized},
		{"/export", http.MethodGet, s.handleExport},
		{"/metrics", http.MethodGet, s.handleMetrics},
		{"/best", http.MethodGet, s.handleBest},
	}
	for _, a := range actions {
		if !strings.HasSuffix(path, a.suffix) {
			continue
		}
		if r.Method != a.method {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		a.handle(w, r, strings.TrimSuffix(path, a.suffix))
		return
	}

	if strings.Contains(path, "/") {
		s.writeError(w, http.StatusNotFound, "unknown endpoint")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.handleGetSweep(w, r, path)
}

// handleCreateSweep handles POST /v1/sweeps. The body is either a JSON
// CreateRequest or, with a YAML content type, the sweep definition itself.
func (s *HTTPServer) handleCreateSweep(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxDefinitionBytes)

	var req CreateRequest
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		data, err := io.ReadAll(body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		q := r.URL.Query()
		req = CreateRequest{
			RunID:       q.Get("run_id"),
			Definition:  string(data),
			CallbackURL: q.Get("callback_url"),
		}
	} else if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Definition) == "" {
		s.writeError(w, http.StatusBadRequest, "definition is required")
		return
	}

	rec, err := s.store.Create(req)
	if err != nil {
		s.writeError(w, httpStatus(err), err.Error())
		return
	}

	logger.Info("sweep created (HTTP)", "run_id", rec.Run.ID, "steps", rec.Run.Steps)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run": newRunView(rec),
	})
}

// handleListSweeps handles GET /v1/sweeps with pagination and filtering
func (s *HTTPServer) handleListSweeps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if parsed, err := strconv.Atoi(q.Get("limit")); err == nil && parsed > 0 {
		limit = min(parsed, 1000)
	}
	offset := 0
	if parsed, err := strconv.Atoi(q.Get("offset")); err == nil && parsed >= 0 {
		offset = parsed
	}
	status := models.RunStatus(strings.ToLower(q.Get("status")))

	recs := s.store.List(limit, offset, status)
	runs := make([]runView, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, newRunView(rec))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs": runs,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleGetSweep handles GET /v1/sweeps/{id}
func (s *HTTPServer) handleGetSweep(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.lookup(r.Context(), runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run":        newRunView(rec),
		"definition": rec.Definition,
		"outcomes":   newOutcomeViews(rec.Outcomes),
	})
}

// handleStartSweep handles POST /v1/sweeps/{id}:start
func (s *HTTPServer) handleStartSweep(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Start(runID)
	if err != nil {
		s.writeError(w, httpStatus(err), err.Error())
		return
	}
	logger.Info("sweep started (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": newRunView(updated),
	})
}

// handleStopSweep handles POST /v1/sweeps/{id}:stop
func (s *HTTPServer) handleStopSweep(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Stop(runID)
	if err != nil {
		s.writeError(w, httpStatus(err), err.Error())
		return
	}
	logger.Info("sweep cancelled (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": newRunView(updated),
	})
}

// handleResults handles GET /v1/sweeps/{id}/results
func (s *HTTPServer) handleResults(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.lookup(r.Context(), runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"status":  rec.Run.Status,
		"results": newResultViews(rec.Results),
	})
}

// handleMinimized handles GET /v1/sweeps/{id}/minimized
func (s *HTTPServer) handleMinimized(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.lookup(r.Context(), runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if rec.Minimized == nil {
		s.writeError(w, http.StatusPreconditionFailed, "results not available")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":    runID,
		"minimized": newMinimizedView(rec.Minimized),
	})
}

// handleExport handles GET /v1/sweeps/{id}/export. The CSV rows are the
// default; ?part=constants returns the constants JSON instead.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.lookup(r.Context(), runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if rec.Minimized == nil {
		s.writeError(w, http.StatusPreconditionFailed, "results not available")
		return
	}

	switch r.URL.Query().Get("part") {
	case "", "rows":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+runID+`.csv"`)
		w.WriteHeader(http.StatusOK)
		if err := report.WriteCSV(w, rec.Minimized); err != nil {
			logger.Error("failed to write CSV export", "run_id", runID, "error", err)
		}
	case "constants":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := report.WriteConstants(w, rec.Minimized); err != nil {
			logger.Error("failed to write constants export", "run_id", runID, "error", err)
		}
	default:
		s.writeError(w, http.StatusBadRequest, "part must be rows or constants")
	}
}

// handleMetrics handles GET /v1/sweeps/{id}/metrics. While the sweep runs
// the figures are computed from the live collector.
func (s *HTTPServer) handleMetrics(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.lookup(r.Context(), runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	m := rec.Metrics
	if m == nil && rec.Collector != nil {
		m = metrics.ConvertToRunMetrics(rec.Collector)
	}
	if m == nil {
		s.writeError(w, http.StatusPreconditionFailed, "metrics not available")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"metrics": m,
	})
}

// handleBest handles GET /v1/sweeps/{id}/best?metric=...&goal=min|max&top=N
func (s *HTTPServer) handleBest(w http.ResponseWriter, r *http.Request, runID string) {
	q := r.URL.Query()
	obj, err := objective.New(q.Get("metric"), q.Get("goal"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	top := 5
	if parsed, err := strconv.Atoi(q.Get("top")); err == nil && parsed > 0 {
		top = min(parsed, 100)
	}

	rec, ok := s.lookup(r.Context(), runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if rec.Minimized == nil {
		s.writeError(w, http.StatusPreconditionFailed, "results not available")
		return
	}

	ranked := objective.Rank(rec.Results, obj)
	if len(ranked) == 0 {
		s.writeError(w, http.StatusUnprocessableEntity, (&objective.NoCandidatesError{Metric: obj.Metric}).Error())
		return
	}
	resp := map[string]any{
		"run_id": runID,
		"metric": obj.Metric,
		"goal":   obj.Goal,
		"ranked": newRankedViews(ranked[:min(top, len(ranked))]),
	}
	if baseline, ok := obj.Evaluate(rec.Results[0].Metrics); ok {
		resp["improvement_pct"] = finite(objective.Improvement(ranked[0].Value, baseline, obj.Minimizes()))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) lookup(ctx context.Context, runID string) (RunRecord, bool) {
	return lookupRun(ctx, s.store, s.archive, runID)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRunExists):
		return http.StatusConflict
	case errors.Is(err, ErrRunTerminal):
		return http.StatusConflict
	case errors.Is(err, ErrRunIDMissing),
		errors.Is(err, ErrInvalidRunID),
		errors.Is(err, ErrInvalidDefinition),
		errors.Is(err, ErrTooManySteps):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
