// Package runner executes one validation run: it builds a dataset's checks
// against a fresh reference store, runs the directory check and every file
// check in order and condenses the outcome into a Report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datacheck/internal/check"
	"github.com/JonMunkholm/datacheck/internal/logging"
	"github.com/JonMunkholm/datacheck/internal/schema"
)

// Policy names a failure policy.
type Policy string

const (
	PolicyTerminate Policy = "terminate"
	PolicyCollect   Policy = "collect"
)

// ParsePolicy accepts "terminate" or "collect" ("" means terminate).
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyTerminate:
		return PolicyTerminate, nil
	case PolicyCollect:
		return PolicyCollect, nil
	default:
		return "", fmt.Errorf("unknown policy %q (want terminate or collect)", s)
	}
}

// Options tune a single run.
type Options struct {
	ID            uuid.UUID // Run id; a random one when zero
	Policy        Policy
	MaxViolations int // Collect only; 0 keeps every violation
}

// StoreFactory creates the reference store for one run. The returned cleanup
// function, if non-nil, is called when the run ends.
type StoreFactory func(ctx context.Context, runID string) (check.Store, func(context.Context) error, error)

// MemoryStores is the default StoreFactory.
func MemoryStores(context.Context, string) (check.Store, func(context.Context) error, error) {
	return check.NewMemoryStore(), nil, nil
}

// Recorder persists finished reports.
type Recorder interface {
	SaveReport(ctx context.Context, r *Report) error
}

// Runner executes validation runs. It is safe for concurrent use; every run
// builds its own columns and reference store.
type Runner struct {
	stores    StoreFactory
	recorders []Recorder
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithStores sets the reference store factory.
func WithStores(f StoreFactory) Option {
	return func(r *Runner) { r.stores = f }
}

// WithRecorder adds a recorder that receives every finished report.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorders = append(r.recorders, rec) }
}

// New creates a Runner using in-memory reference stores unless configured
// otherwise.
func New(opts ...Option) *Runner {
	r := &Runner{stores: MemoryStores, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run validates dir against ds.
//
// Check failures never produce an error; they mark the report failed. An
// error is returned for infrastructure problems (unreadable files, reference
// store failures, cancellation, recorder failures), together with a report
// whose status is StatusError.
func (r *Runner) Run(ctx context.Context, ds schema.Dataset, dir string, opts Options) (*Report, error) {
	policyName, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}

	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	rep := &Report{
		ID:        id,
		Dataset:   ds.Name,
		Directory: dir,
		Policy:    policyName,
		StartedAt: r.now().UTC(),
	}
	ctx = logging.WithRun(ctx, rep.ID.String())
	logger := logging.WithFields(ctx, "dataset", ds.Name, "policy", policyName)

	for _, w := range ds.Warnings() {
		logger.Warn("schema warning", "warning", w)
	}

	runErr := r.execute(ctx, logger, ds, dir, opts, policyName, rep)
	rep.FinishedAt = r.now().UTC()

	switch {
	case runErr != nil:
		rep.Status = StatusError
		rep.Error = runErr.Error()
	case rep.Total > 0:
		rep.Status = StatusFailed
	default:
		rep.Status = StatusPassed
	}

	logger.Info("run finished",
		"status", rep.Status,
		"violations", rep.Total,
		"files", len(rep.Files),
		"duration_ms", rep.Duration().Milliseconds(),
	)

	for _, rec := range r.recorders {
		if err := rec.SaveReport(ctx, rep); err != nil {
			logger.Error("failed to record report", "error", err)
			runErr = errors.Join(runErr, fmt.Errorf("record report: %w", err))
		}
	}

	return rep, runErr
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, ds schema.Dataset, dir string, opts Options, policyName Policy, rep *Report) error {
	store, cleanup, err := r.stores(ctx, rep.ID.String())
	if err != nil {
		return fmt.Errorf("create reference store: %w", err)
	}
	if cleanup != nil {
		defer func() {
			if err := cleanup(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("reference store cleanup failed", "error", err)
			}
		}()
	}

	plan, err := schema.Build(ds, dir, store)
	if err != nil {
		return err
	}
	rep.Directory = plan.Dir

	var policy check.Policy = check.Terminate()
	var collector *check.CollectPolicy
	if policyName == PolicyCollect {
		collector = check.Collect(opts.MaxViolations)
		policy = collector
		defer func() {
			rep.Violations = collector.Violations()
			rep.Total = collector.Total()
			rep.Truncated = collector.Truncated()
			rep.Counts = collector.Counts()
		}()
	}

	// stop records a terminate-policy failure and swallows it; any other
	// error is returned unchanged.
	stop := func(err error) error {
		if !errors.Is(err, check.ErrCheckFailed) {
			return err
		}
		if v, ok := check.ViolationOf(err); ok {
			rep.addViolation(v)
		}
		return nil
	}

	if plan.Directory != nil {
		if err := plan.Directory.Run(ctx, policy, plan.Dir); err != nil {
			return stop(err)
		}
	}

	for _, f := range plan.Files {
		before := 0
		if collector != nil {
			before = collector.Total()
		}

		logger.Debug("checking file", "file", f.Name(), "path", f.Path())
		stats, err := f.Run(ctx, policy)

		result := FileResult{Name: f.Name(), Path: f.Path(), Stats: stats}
		if collector != nil {
			result.Violations = collector.Total() - before
		}
		if err != nil {
			if errors.Is(err, check.ErrCheckFailed) {
				result.Violations = 1
			}
			rep.Files = append(rep.Files, result)
			logger.Info("file stopped", "file", f.Name(), "rows", stats.Rows, "error", err)
			return stop(err)
		}

		rep.Files = append(rep.Files, result)
		logger.Info("file checked",
			"file", f.Name(),
			"rows", stats.Rows,
			"bytes", stats.Bytes,
			"violations", result.Violations,
			"duration_ms", stats.Duration.Milliseconds(),
		)
	}
	return nil
}
