package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobwatch-engine/internal/domain"
)

// StartRun inserts a PENDING row for one pass and returns its run_id.
// Finalization happens inside the scope transaction via FinishRun, so the
// StoredJob mutations and the run outcome commit together.
func StartRun(ctx context.Context, q Querier, scope domain.Scope, now time.Time) (string, error) {
	runID := uuid.NewString()
	_, err := q.ExecContext(ctx, `
INSERT INTO run_logs (run_id, ats_type, company_name, started_at, status)
VALUES (?,?,?,?,?);`,
		runID, scope.ATSType, scope.Company, fmtTime(now), domain.RunPending)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return runID, nil
}

func FinishRun(ctx context.Context, q Querier, runID string, counts domain.RunCounts, status, endpoint, errDetail string, now time.Time) error {
	res, err := q.ExecContext(ctx, `
UPDATE run_logs SET
  finished_at = ?, status = ?, endpoint = ?,
  fetched_count = ?, new_count = ?, updated_count = ?, unchanged_count = ?, closed_count = ?,
  error_detail = ?
WHERE run_id = ? AND status = ?;`,
		fmtTime(now), status, endpoint,
		counts.Fetched, counts.New, counts.Updated, counts.Unchanged, counts.Closed,
		nullIfEmpty(errDetail),
		runID, domain.RunPending)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no pending row", runID)
	}
	return nil
}

// SweepStaleRuns marks PENDING rows started before the cutoff as FAILED.
// Called on engine startup to close out runs interrupted by a crash.
func SweepStaleRuns(ctx context.Context, q Querier, cutoff time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `
UPDATE run_logs SET
  finished_at = ?, status = ?, error_detail = 'interrupted: engine restarted before finalize'
WHERE status = ? AND started_at < ?;`,
		fmtTime(time.Now()), domain.RunFailed, domain.RunPending, fmtTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("sweep stale runs: %w", err)
	}
	return res.RowsAffected()
}

const runColumns = `
run_id, ats_type, company_name, started_at, finished_at, status, endpoint,
fetched_count, new_count, updated_count, unchanged_count, closed_count, error_detail`

func GetRun(ctx context.Context, q Querier, runID string) (domain.RunLog, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+runColumns+` FROM run_logs WHERE run_id = ?;`, runID)
	if err != nil {
		return domain.RunLog{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return domain.RunLog{}, sql.ErrNoRows
	}
	return scanRun(rows)
}

// LatestRunByScope returns the most recently started run for a scope.
func LatestRunByScope(ctx context.Context, q Querier, scope domain.Scope) (domain.RunLog, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+runColumns+`
FROM run_logs
WHERE ats_type = ? AND company_name = ?
ORDER BY started_at DESC, run_id DESC
LIMIT 1;`, scope.ATSType, scope.Company)
	if err != nil {
		return domain.RunLog{}, fmt.Errorf("latest run: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return domain.RunLog{}, sql.ErrNoRows
	}
	return scanRun(rows)
}

type ListRunsOpts struct {
	ATSType string
	Company string
	Status  string
	Limit   int
}

func ListRuns(ctx context.Context, q Querier, opts ListRunsOpts) ([]domain.RunLog, error) {
	if opts.Limit <= 0 || opts.Limit > 1000 {
		opts.Limit = 100
	}

	where := "WHERE 1=1"
	args := []any{}
	if opts.ATSType != "" {
		where += " AND ats_type = ?"
		args = append(args, opts.ATSType)
	}
	if opts.Company != "" {
		where += " AND company_name = ?"
		args = append(args, opts.Company)
	}
	if opts.Status != "" {
		where += " AND status = ?"
		args = append(args, opts.Status)
	}
	args = append(args, opts.Limit)

	rows, err := q.QueryContext(ctx, `
SELECT `+runColumns+`
FROM run_logs
`+where+`
ORDER BY started_at DESC, run_id DESC
LIMIT ?;`, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunLog
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(rows *sql.Rows) (domain.RunLog, error) {
	var r domain.RunLog
	var finished, errDetail sql.NullString
	var started string

	if err := rows.Scan(
		&r.RunID, &r.ATSType, &r.CompanyName, &started, &finished, &r.Status, &r.Endpoint,
		&r.Counts.Fetched, &r.Counts.New, &r.Counts.Updated, &r.Counts.Unchanged, &r.Counts.Closed,
		&errDetail,
	); err != nil {
		return domain.RunLog{}, fmt.Errorf("scan run: %w", err)
	}

	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTimePtr(finished)
	if errDetail.Valid {
		r.ErrorDetail = errDetail.String
	}
	return r, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
