package web

// errors.go maps failures to HTTP responses.
//
// Technical detail is logged with the request id; clients get a short
// message and a stable machine-readable code. API routes answer JSON, pages
// answer plain text.

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/JonMunkholm/datacheck/internal/logging"
	"github.com/JonMunkholm/datacheck/internal/runner"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var (
	errUnknownDataset = errors.New("unknown dataset")
	errBadDirectory   = errors.New("directory is not inside the data root")
	errBadRequest     = errors.New("bad request")
)

// respondError logs err and writes the client-facing form of it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)

	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}
	writeError(w, r, status, code, message)
}

// classify maps an error to status, code and client message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, runner.ErrReportNotFound):
		return http.StatusNotFound, "RUN_NOT_FOUND", "run not found"
	case errors.Is(err, errUnknownDataset):
		return http.StatusNotFound, "DATASET_NOT_FOUND", err.Error()
	case errors.Is(err, errBadDirectory):
		return http.StatusBadRequest, "BAD_DIRECTORY", err.Error()
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "BAD_REQUEST", err.Error()
	case errors.Is(err, runner.ErrTooManyRuns):
		return http.StatusTooManyRequests, "TOO_MANY_RUNS", runner.ErrTooManyRuns.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if !wantsJSON(r) {
		http.Error(w, message+" ("+code+")", status)
		return
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeJSON encodes v with the given status. Encoding errors are logged since
// the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// wantsJSON reports whether the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
