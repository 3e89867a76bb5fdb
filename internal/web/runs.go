package web

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datacheck/internal/logging"
	"github.com/JonMunkholm/datacheck/internal/runner"
	"github.com/JonMunkholm/datacheck/internal/schema"
)

// RunningRun describes a run that has started but not finished.
type RunningRun struct {
	ID        uuid.UUID     `json:"id"`
	Dataset   string        `json:"dataset"`
	Directory string        `json:"directory"`
	Policy    runner.Policy `json:"policy"`
	Status    string        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
}

type activeRuns struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]RunningRun
}

func newActiveRuns() *activeRuns {
	return &activeRuns{runs: make(map[uuid.UUID]RunningRun)}
}

func (a *activeRuns) add(r RunningRun) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs[r.ID] = r
}

func (a *activeRuns) remove(id uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.runs, id)
}

func (a *activeRuns) get(id uuid.UUID) (RunningRun, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.runs[id]
	return r, ok
}

// list returns running runs, most recent first.
func (a *activeRuns) list() []RunningRun {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]RunningRun, 0, len(a.runs))
	for _, r := range a.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// RunRequest is the body of POST /api/runs.
type RunRequest struct {
	Dataset       string `json:"dataset"`
	Directory     string `json:"directory"`
	Policy        string `json:"policy,omitempty"`
	MaxViolations *int   `json:"max_violations,omitempty"`
}

// startRun validates req, takes a limiter slot and runs the check in the
// background. The slot is held until the run finishes.
func (s *Server) startRun(ctx context.Context, req RunRequest) (RunningRun, error) {
	ds, ok := schema.Get(req.Dataset)
	if !ok {
		return RunningRun{}, fmt.Errorf("%w: %q", errUnknownDataset, req.Dataset)
	}

	dir, err := resolveDir(s.cfg.Check.DataRoot, req.Directory)
	if err != nil {
		return RunningRun{}, err
	}

	policyName := req.Policy
	if policyName == "" {
		policyName = s.cfg.Check.Policy
	}
	policy, err := runner.ParsePolicy(strings.ToLower(policyName))
	if err != nil {
		return RunningRun{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	maxViolations := s.cfg.Check.MaxViolations
	if req.MaxViolations != nil {
		if *req.MaxViolations < 0 {
			return RunningRun{}, fmt.Errorf("%w: max_violations must be non-negative", errBadRequest)
		}
		maxViolations = *req.MaxViolations
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return RunningRun{}, err
	}

	run := RunningRun{
		ID:        uuid.New(),
		Dataset:   ds.Name,
		Directory: dir,
		Policy:    policy,
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	s.active.add(run)
	s.runs.Add(1)

	go func() {
		defer s.runs.Done()
		defer s.limiter.Release()
		defer s.active.remove(run.ID)

		runCtx, cancel := context.WithTimeout(s.runCtx, s.cfg.Check.Timeout)
		defer cancel()
		runCtx = logging.WithRun(runCtx, run.ID.String())

		_, err := s.runner.Run(runCtx, ds, dir, runner.Options{
			ID:            run.ID,
			Policy:        policy,
			MaxViolations: maxViolations,
		})
		if err != nil {
			logging.FromContext(runCtx).Error("run failed", "error", err)
		}
	}()

	return run, nil
}

// resolveDir joins dir onto root when relative and rejects anything that
// escapes root or is not a directory. Symlinks are resolved before the
// containment check, so the returned path is the real one.
func resolveDir(root, dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: directory is required", errBadRequest)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve data root: %w", err)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(absRoot, dir)
	}
	dir = filepath.Clean(dir)
	if !within(absRoot, dir) {
		return "", fmt.Errorf("%w: %s", errBadDirectory, dir)
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolve data root: %w", err)
	}
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a directory", errBadRequest, dir)
	}
	if !within(realRoot, realDir) {
		return "", fmt.Errorf("%w: %s", errBadDirectory, dir)
	}

	info, err := os.Stat(realDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", errBadRequest, dir)
	}
	return realDir, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
