package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/datacheck/internal/check"
	"github.com/JonMunkholm/datacheck/internal/runner"
)

// Runs reads and writes reports. It implements runner.Recorder and
// runner.Reports.
type Runs struct {
	pool *pgxpool.Pool
}

// NewRuns wraps pool.
func NewRuns(pool *pgxpool.Pool) *Runs {
	return &Runs{pool: pool}
}

var violationColumns = []string{
	"run_id", "seq", "kind", "code", "check_name", "path", "line", "row_values", "field", "message",
}

// SaveReport stores the run row and its kept violations in one transaction.
// Saving the same report twice replaces the earlier copy.
func (s *Runs) SaveReport(ctx context.Context, r *runner.Report) error {
	files, err := json.Marshal(r.Files)
	if err != nil {
		return fmt.Errorf("encode files: %w", err)
	}
	counts, err := json.Marshal(r.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	id := pgtype.UUID{Bytes: r.ID, Valid: true}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM check_runs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("replace run %s: %w", r.ID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO check_runs (
			id, dataset, directory, policy, status, started_at, finished_at,
			file_count, rows_checked, total_violations, truncated, error, files, counts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, r.Dataset, r.Directory, string(r.Policy), string(r.Status), r.StartedAt, r.FinishedAt,
		len(r.Files), r.Rows(), r.Total, r.Truncated, r.Error, files, counts,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}

	if len(r.Violations) > 0 {
		rows := make([][]any, len(r.Violations))
		for i, v := range r.Violations {
			rows[i] = []any{id, i, string(v.Kind), string(v.Code), v.Check, v.Path, v.Line, v.Row, v.Field, v.Message}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"check_violations"}, violationColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy violations for run %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means 50.
func (s *Runs) ListRuns(ctx context.Context, limit int) ([]runner.Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, dataset, directory, policy, status, started_at, finished_at,
		       file_count, rows_checked, total_violations
		FROM check_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []runner.Summary
	for rows.Next() {
		var (
			id             pgtype.UUID
			sum            runner.Summary
			policy, status string
		)
		if err := rows.Scan(&id, &sum.Dataset, &sum.Directory, &policy, &status, &sum.StartedAt, &sum.FinishedAt,
			&sum.Files, &sum.Rows, &sum.Total); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		sum.ID = uuid.UUID(id.Bytes)
		sum.Policy = runner.Policy(policy)
		sum.Status = runner.Status(status)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// GetReport loads a run and its kept violations in report order.
func (s *Runs) GetReport(ctx context.Context, id uuid.UUID) (*runner.Report, error) {
	pgID := pgtype.UUID{Bytes: id, Valid: true}
	r := &runner.Report{ID: id}

	var (
		policy, status string
		files, counts  []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT dataset, directory, policy, status, started_at, finished_at,
		       total_violations, truncated, error, files, counts
		FROM check_runs
		WHERE id = $1`, pgID).Scan(
		&r.Dataset, &r.Directory, &policy, &status, &r.StartedAt, &r.FinishedAt,
		&r.Total, &r.Truncated, &r.Error, &files, &counts,
	)
	if isNotFound(err) {
		return nil, runner.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	r.Policy = runner.Policy(policy)
	r.Status = runner.Status(status)

	if err := json.Unmarshal(files, &r.Files); err != nil {
		return nil, fmt.Errorf("decode files of run %s: %w", id, err)
	}
	if err := json.Unmarshal(counts, &r.Counts); err != nil {
		return nil, fmt.Errorf("decode counts of run %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT kind, code, check_name, path, line, row_values, field, message
		FROM check_violations
		WHERE run_id = $1
		ORDER BY seq`, pgID)
	if err != nil {
		return nil, fmt.Errorf("get violations of run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v          check.Violation
			kind, code string
		)
		if err := rows.Scan(&kind, &code, &v.Check, &v.Path, &v.Line, &v.Row, &v.Field, &v.Message); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		v.Kind = check.Kind(kind)
		v.Code = check.Code(code)
		r.Violations = append(r.Violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get violations of run %s: %w", id, err)
	}
	return r, nil
}
