package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/JonMunkholm/datacheck/internal/logging"
	"github.com/JonMunkholm/datacheck/internal/report"
	"github.com/JonMunkholm/datacheck/internal/runner"
	"github.com/JonMunkholm/datacheck/internal/schema"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 64 * 1024

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func parseRunID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid run id", errBadRequest)
	}
	return id, nil
}

// handleHealth probes every registered dependency.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, probe := range s.health {
		if err := probe(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": checks,
		"runs":   s.limiter.Status(),
	})
}

// DatasetInfo is the listing view of a dataset.
type DatasetInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Files       []FileInfo `json:"files"`
}

// FileInfo is the listing view of one dataset file.
type FileInfo struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Columns []string `json:"columns"`
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	all := schema.All()
	out := make([]DatasetInfo, 0, len(all))
	for _, ds := range all {
		info := DatasetInfo{Name: ds.Name, Description: ds.Description}
		for _, f := range ds.Files {
			info.Files = append(info.Files, FileInfo{Name: f.Name, Path: f.Path, Columns: f.ColumnNames()})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ds, ok := schema.Get(name)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", errUnknownDataset, name))
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	run, err := s.startRun(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/runs/"+run.ID.String())
	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	runs, err := s.reports.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []runner.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running": s.active.list(),
		"runs":    runs,
	})
}

// handleGetRun answers 202 while the run is in progress and the full report
// once it has finished.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if running, ok := s.active.get(id); ok {
		writeJSON(w, http.StatusAccepted, running)
		return
	}

	rep, err := s.reports.GetReport(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRunsPage(w http.ResponseWriter, r *http.Request) {
	runs, err := s.reports.ListRuns(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RunList(runs).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render runs page", "error", err)
	}
}

func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, ok := s.active.get(id); ok {
		w.Header().Set("Refresh", "5")
		http.Error(w, "run in progress", http.StatusAccepted)
		return
	}

	rep, err := s.reports.GetReport(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.Page(rep).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render run page", "error", err, "run_id", id)
	}
}
