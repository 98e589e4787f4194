package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobwatch-engine/internal/domain"
)

const jobColumns = `
id, external_id, ats_type, company_name, title, department, location_text,
remote_type, employment_type, posted_at, updated_at_source, apply_url,
source_url, description_html, status, first_seen_at, last_seen_at,
last_changed_at, content_hash`

// JobsByScope returns every row (OPEN and CLOSED) for one (ats, company) pair.
func JobsByScope(ctx context.Context, q Querier, scope domain.Scope) ([]domain.StoredJob, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE ats_type = ? AND company_name = ?
ORDER BY id;`, scope.ATSType, scope.Company)
	if err != nil {
		return nil, fmt.Errorf("jobs by scope: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func InsertJob(ctx context.Context, q Querier, j domain.StoredJob) (int64, error) {
	res, err := q.ExecContext(ctx, `
INSERT INTO jobs (
  external_id, ats_type, company_name, title, department, location_text,
  remote_type, employment_type, posted_at, updated_at_source, apply_url,
  source_url, description_html, status, first_seen_at, last_seen_at,
  last_changed_at, content_hash
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		j.ExternalID, j.ATSType, j.CompanyName, j.Title, j.Department, j.LocationText,
		j.RemoteType, j.EmploymentType, fmtTimePtr(j.PostedAt), fmtTimePtr(j.UpdatedAtSource),
		j.ApplyURL, j.SourceURL, j.DescriptionHTML, j.Status,
		fmtTime(j.FirstSeenAt), fmtTime(j.LastSeenAt), fmtTime(j.LastChangedAt), j.ContentHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	return res.LastInsertId()
}

// UpdateJobContent overwrites the mutable fields of one row, recomputed hash
// included, and reopens it if it was CLOSED. posted_at is only filled in when
// it was never recorded.
func UpdateJobContent(ctx context.Context, q Querier, j domain.StoredJob) error {
	_, err := q.ExecContext(ctx, `
UPDATE jobs SET
  title = ?, department = ?, location_text = ?, remote_type = ?,
  employment_type = ?, posted_at = COALESCE(posted_at, ?), updated_at_source = ?,
  apply_url = ?, source_url = ?, description_html = ?, status = ?,
  last_seen_at = ?, last_changed_at = ?, content_hash = ?
WHERE id = ?;`,
		j.Title, j.Department, j.LocationText, j.RemoteType,
		j.EmploymentType, fmtTimePtr(j.PostedAt), fmtTimePtr(j.UpdatedAtSource),
		j.ApplyURL, j.SourceURL, j.DescriptionHTML, j.Status,
		fmtTime(j.LastSeenAt), fmtTime(j.LastChangedAt), j.ContentHash,
		j.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %d: %w", j.ID, err)
	}
	return nil
}

// TouchJobSeen bumps last_seen_at for an unchanged sighting.
func TouchJobSeen(ctx context.Context, q Querier, id int64, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE jobs SET last_seen_at = ? WHERE id = ?;`, fmtTime(now), id)
	if err != nil {
		return fmt.Errorf("touch job %d: %w", id, err)
	}
	return nil
}

// CloseJob flips an OPEN row to CLOSED. last_seen_at is left alone: the job
// was not seen, that is the point.
func CloseJob(ctx context.Context, q Querier, id int64, now time.Time) error {
	_, err := q.ExecContext(ctx, `
UPDATE jobs SET status = ?, last_changed_at = ?
WHERE id = ? AND status = ?;`,
		domain.JobClosed, fmtTime(now), id, domain.JobOpen)
	if err != nil {
		return fmt.Errorf("close job %d: %w", id, err)
	}
	return nil
}

type ListJobsOpts struct {
	ATSType string
	Company string
	Status  string // OPEN | CLOSED | "" for all
	Limit   int
	Offset  int
}

func ListJobs(ctx context.Context, q Querier, opts ListJobsOpts) ([]domain.StoredJob, error) {
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
	args = append(args, opts.Limit, opts.Offset)

	rows, err := q.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
`+where+`
ORDER BY id DESC
LIMIT ? OFFSET ?;`, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func CountJobsByStatus(ctx context.Context, q Querier, scope domain.Scope, status string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
SELECT COUNT(*) FROM jobs
WHERE ats_type = ? AND company_name = ? AND status = ?;`,
		scope.ATSType, scope.Company, status).Scan(&n)
	return n, err
}

func scanJob(rows *sql.Rows) (domain.StoredJob, error) {
	var j domain.StoredJob
	var postedAt, updatedAtSource sql.NullString
	var firstSeen, lastSeen, lastChanged string

	if err := rows.Scan(
		&j.ID, &j.ExternalID, &j.ATSType, &j.CompanyName, &j.Title, &j.Department,
		&j.LocationText, &j.RemoteType, &j.EmploymentType, &postedAt, &updatedAtSource,
		&j.ApplyURL, &j.SourceURL, &j.DescriptionHTML, &j.Status,
		&firstSeen, &lastSeen, &lastChanged, &j.ContentHash,
	); err != nil {
		return domain.StoredJob{}, fmt.Errorf("scan job: %w", err)
	}

	j.PostedAt = parseTimePtr(postedAt)
	j.UpdatedAtSource = parseTimePtr(updatedAtSource)
	j.FirstSeenAt = parseTime(firstSeen)
	j.LastSeenAt = parseTime(lastSeen)
	j.LastChangedAt = parseTime(lastChanged)
	return j, nil
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
