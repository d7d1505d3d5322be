package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tycoon-engine/internal/model"
	"tycoon-engine/internal/pkg/db"
)

const projectColumns = `id, company_id, name, difficulty, reward, progress, status, started_at,
	deadline, last_progress_at, completed_at, claimed_at, created_at`

// ProjectRepository handles project persistence.
type ProjectRepository struct {
	q db.Querier
}

// NewProjectRepository creates a new ProjectRepository instance.
func NewProjectRepository(q db.Querier) *ProjectRepository {
	return &ProjectRepository{q: q}
}

// Create inserts p and fills in its ID.
func (r *ProjectRepository) Create(ctx context.Context, p *model.Project) error {
	const query = `
		INSERT INTO projects (company_id, name, difficulty, reward, progress, status,
			started_at, deadline, last_progress_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		p.CompanyID,
		p.Name,
		p.Difficulty,
		p.Reward,
		p.Progress,
		string(p.Status),
		p.StartedAt,
		p.Deadline,
		p.LastProgressAt,
		p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get returns a project, locking the row if forUpdate.
func (r *ProjectRepository) Get(ctx context.Context, id int64, forUpdate bool) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1` + lockClause(forUpdate)
	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Project])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// ListDueCompanies returns companies with an in-progress project last
// advanced at or before cutoff.
func (r *ProjectRepository) ListDueCompanies(ctx context.Context, cutoff time.Time) ([]int64, error) {
	const query = `
		SELECT DISTINCT company_id FROM projects
		WHERE status = 'in_progress' AND (last_progress_at IS NULL OR last_progress_at <= $1)
		ORDER BY company_id
	`
	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list due projects: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to list due projects: %w", err)
	}
	return ids, nil
}

// ListByCompany returns a company's projects in the given statuses, oldest
// first. Rows are locked if forUpdate.
func (r *ProjectRepository) ListByCompany(ctx context.Context, companyID int64, statuses []model.ProjectStatus, forUpdate bool) ([]model.Project, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE company_id = $1 AND status = ANY($2)
		ORDER BY created_at, id` + lockClause(forUpdate)
	rows, err := r.q.Query(ctx, query, companyID, names)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	projects, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Project])
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Save writes the mutable columns of p.
func (r *ProjectRepository) Save(ctx context.Context, p *model.Project) error {
	const query = `
		UPDATE projects
		SET progress = $2,
			status = $3,
			started_at = $4,
			deadline = $5,
			last_progress_at = $6,
			completed_at = $7,
			claimed_at = $8
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		p.ID,
		p.Progress,
		string(p.Status),
		p.StartedAt,
		p.Deadline,
		p.LastProgressAt,
		p.CompletedAt,
		p.ClaimedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}
