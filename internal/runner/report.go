package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datacheck/internal/check"
	"github.com/JonMunkholm/datacheck/internal/driver"
)

// Status is the outcome of a run.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed" // At least one violation
	StatusError  Status = "error"  // The run could not complete
)

// FileResult is the outcome for one data file.
type FileResult struct {
	Name       string           `json:"name" msgpack:"name"`
	Path       string           `json:"path" msgpack:"path"`
	Stats      driver.FileStats `json:"stats" msgpack:"stats"`
	Violations int              `json:"violations" msgpack:"violations"`
}

// Report is everything known about a finished run.
type Report struct {
	ID         uuid.UUID         `json:"id" msgpack:"id"`
	Dataset    string            `json:"dataset" msgpack:"dataset"`
	Directory  string            `json:"directory" msgpack:"directory"`
	Policy     Policy            `json:"policy" msgpack:"policy"`
	Status     Status            `json:"status" msgpack:"status"`
	StartedAt  time.Time         `json:"started_at" msgpack:"started_at"`
	FinishedAt time.Time         `json:"finished_at" msgpack:"finished_at"`
	Files      []FileResult      `json:"files" msgpack:"files"`
	Violations []check.Violation `json:"violations" msgpack:"violations"`
	Total      int               `json:"total_violations" msgpack:"total"`
	Truncated  bool              `json:"truncated,omitempty" msgpack:"truncated"`
	Counts     []check.CodeCount `json:"counts,omitempty" msgpack:"counts"`
	Error      string            `json:"error,omitempty" msgpack:"error"`
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Passed reports whether the run completed without violations.
func (r *Report) Passed() bool { return r.Status == StatusPassed }

// Rows returns the number of data rows checked across all files.
func (r *Report) Rows() int64 {
	var n int64
	for _, f := range r.Files {
		n += f.Stats.Rows
	}
	return n
}

func (r *Report) addViolation(v check.Violation) {
	r.Violations = append(r.Violations, v)
	r.Total++
	for i := range r.Counts {
		if r.Counts[i].Code == v.Code {
			r.Counts[i].Count++
			return
		}
	}
	r.Counts = append(r.Counts, check.CodeCount{Code: v.Code, Count: 1})
}

// Summary is the listing view of a report.
type Summary struct {
	ID         uuid.UUID `json:"id"`
	Dataset    string    `json:"dataset"`
	Directory  string    `json:"directory"`
	Policy     Policy    `json:"policy"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      int       `json:"files"`
	Rows       int64     `json:"rows"`
	Total      int       `json:"total_violations"`
}

// Summarize returns the listing view of r.
func (r *Report) Summarize() Summary {
	return Summary{
		ID:         r.ID,
		Dataset:    r.Dataset,
		Directory:  r.Directory,
		Policy:     r.Policy,
		Status:     r.Status,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Files:      len(r.Files),
		Rows:       r.Rows(),
		Total:      r.Total,
	}
}
