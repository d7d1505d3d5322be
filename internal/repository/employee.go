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

const employeeColumns = `id, company_id, name, role, productivity, skill_level, salary,
	energy, morale, status, project_id, last_tick_at, hired_at`

// EmployeeRepository handles employee persistence.
type EmployeeRepository struct {
	q db.Querier
}

// NewEmployeeRepository creates a new EmployeeRepository instance.
func NewEmployeeRepository(q db.Querier) *EmployeeRepository {
	return &EmployeeRepository{q: q}
}

func (r *EmployeeRepository) list(ctx context.Context, query string, args ...any) ([]model.Employee, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[model.Employee])
}

// Create inserts e and fills in its ID.
func (r *EmployeeRepository) Create(ctx context.Context, e *model.Employee) error {
	const query = `
		INSERT INTO employees (company_id, name, role, productivity, skill_level, salary,
			energy, morale, status, project_id, last_tick_at, hired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		e.CompanyID,
		e.Name,
		string(e.Role),
		e.Productivity,
		e.SkillLevel,
		e.Salary,
		e.Energy,
		e.Morale,
		string(e.Status),
		e.ProjectID,
		e.LastTickAt,
		e.HiredAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

// Get returns an employee, locking the row if forUpdate.
func (r *EmployeeRepository) Get(ctx context.Context, id int64, forUpdate bool) (*model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1` + lockClause(forUpdate)
	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Employee])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}

// ListDue returns non-quit employees last ticked at or before cutoff.
func (r *EmployeeRepository) ListDue(ctx context.Context, cutoff time.Time) ([]int64, error) {
	const query = `
		SELECT id FROM employees
		WHERE status <> 'quit' AND (last_tick_at IS NULL OR last_tick_at <= $1)
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list due employees: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to list due employees: %w", err)
	}
	return ids, nil
}

// ListByCompany returns a company's employees, quit ones excluded unless
// includeQuit. Rows are locked if forUpdate.
func (r *EmployeeRepository) ListByCompany(ctx context.Context, companyID int64, includeQuit, forUpdate bool) ([]model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE company_id = $1`
	if !includeQuit {
		query += ` AND status <> 'quit'`
	}
	query += ` ORDER BY id` + lockClause(forUpdate)
	emps, err := r.list(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return emps, nil
}

// ListByProject returns the employees assigned to a project.
func (r *EmployeeRepository) ListByProject(ctx context.Context, projectID int64, forUpdate bool) ([]model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE project_id = $1 ORDER BY id` + lockClause(forUpdate)
	emps, err := r.list(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project employees: %w", err)
	}
	return emps, nil
}

// CountActive returns how many non-quit employees a company has.
func (r *EmployeeRepository) CountActive(ctx context.Context, companyID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM employees WHERE company_id = $1 AND status <> 'quit'`
	var n int
	if err := r.q.QueryRow(ctx, query, companyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}

// Save writes the mutable columns of e.
func (r *EmployeeRepository) Save(ctx context.Context, e *model.Employee) error {
	const query = `
		UPDATE employees
		SET skill_level = $2,
			salary = $3,
			energy = $4,
			morale = $5,
			status = $6,
			project_id = $7,
			last_tick_at = $8
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		e.ID,
		e.SkillLevel,
		e.Salary,
		e.Energy,
		e.Morale,
		string(e.Status),
		e.ProjectID,
		e.LastTickAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// ReleaseProject unassigns everyone from projectID; working employees go
// back to idle. Returns how many were released.
func (r *EmployeeRepository) ReleaseProject(ctx context.Context, projectID int64) (int64, error) {
	const query = `
		UPDATE employees
		SET project_id = NULL,
			status = CASE WHEN status = 'working' THEN 'idle' ELSE status END
		WHERE project_id = $1
	`
	tag, err := r.q.Exec(ctx, query, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to release project: %w", err)
	}
	return tag.RowsAffected(), nil
}
