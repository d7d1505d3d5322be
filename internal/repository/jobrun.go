package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tycoon-engine/internal/pkg/db"
)

// JobRunRepository persists the last run time of each job kind.
type JobRunRepository struct {
	q db.Querier
}

// NewJobRunRepository creates a new JobRunRepository instance.
func NewJobRunRepository(q db.Querier) *JobRunRepository {
	return &JobRunRepository{q: q}
}

// LastRun returns when kind last ran. ok is false if it never ran.
func (r *JobRunRepository) LastRun(ctx context.Context, kind string) (time.Time, bool, error) {
	const query = `SELECT last_run_at FROM job_runs WHERE kind = $1`

	var last time.Time
	err := r.q.QueryRow(ctx, query, kind).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get last run: %w", err)
	}
	return last, true, nil
}

// Mark records a run of kind at at, unconditionally.
func (r *JobRunRepository) Mark(ctx context.Context, kind string, at time.Time) error {
	const query = `
		INSERT INTO job_runs (kind, last_run_at)
		VALUES ($1, $2)
		ON CONFLICT (kind) DO UPDATE SET last_run_at = EXCLUDED.last_run_at
	`
	if _, err := r.q.Exec(ctx, query, kind, at); err != nil {
		return fmt.Errorf("failed to mark run: %w", err)
	}
	return nil
}

// TryClaim moves kind's timestamp to now only if the previous run is at
// least interval old, in one statement. Of two concurrent callers exactly
// one gets true.
func (r *JobRunRepository) TryClaim(ctx context.Context, kind string, now time.Time, interval time.Duration) (bool, error) {
	const query = `
		INSERT INTO job_runs (kind, last_run_at)
		VALUES ($1, $2)
		ON CONFLICT (kind) DO UPDATE SET last_run_at = EXCLUDED.last_run_at
		WHERE job_runs.last_run_at <= $2::timestamptz - make_interval(secs => $3)
		RETURNING kind
	`
	var claimed string
	err := r.q.QueryRow(ctx, query, kind, now, interval.Seconds()).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim run: %w", err)
	}
	return true, nil
}
