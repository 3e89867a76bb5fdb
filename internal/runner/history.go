package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrReportNotFound is returned when no report has the requested id.
var ErrReportNotFound = errors.New("report not found")

// Reports reads back recorded reports, newest first.
type Reports interface {
	ListRuns(ctx context.Context, limit int) ([]Summary, error)
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
}

// History keeps the most recent reports in memory. It implements Recorder
// and Reports.
type History struct {
	mu      sync.RWMutex
	max     int
	order   []uuid.UUID
	reports map[uuid.UUID]*Report
}

// NewHistory keeps up to max reports (100 when max <= 0).
func NewHistory(max int) *History {
	if max <= 0 {
		max = 100
	}
	return &History{max: max, reports: make(map[uuid.UUID]*Report)}
}

func (h *History) SaveReport(_ context.Context, r *Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.reports[r.ID]; !ok {
		h.order = append(h.order, r.ID)
	}
	h.reports[r.ID] = r

	for len(h.order) > h.max {
		delete(h.reports, h.order[0])
		h.order = h.order[1:]
	}
	return nil
}

func (h *History) ListRuns(_ context.Context, limit int) ([]Summary, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.order) {
		limit = len(h.order)
	}
	out := make([]Summary, 0, limit)
	for i := len(h.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.reports[h.order[i]].Summarize())
	}
	return out, nil
}

func (h *History) GetReport(_ context.Context, id uuid.UUID) (*Report, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return r, nil
}
