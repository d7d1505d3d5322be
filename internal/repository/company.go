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

const companyColumns = `id, user_id, name, company_level, max_employees, cash, monthly_revenue,
	monthly_costs, xp, bankruptcy_count, last_payroll_at, created_at, updated_at`

// CompanyRepository handles company persistence.
type CompanyRepository struct {
	q db.Querier
}

// NewCompanyRepository creates a new CompanyRepository instance.
func NewCompanyRepository(q db.Querier) *CompanyRepository {
	return &CompanyRepository{q: q}
}

func (r *CompanyRepository) one(ctx context.Context, query string, args ...any) (*model.Company, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Company])
	if err != nil {
		return nil, notFound(err, ErrCompanyNotFound)
	}
	return &c, nil
}

func (r *CompanyRepository) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// Create creates a company for userID with the given starting cash.
func (r *CompanyRepository) Create(ctx context.Context, userID int64, name string, cash int64, maxEmployees int) (*model.Company, error) {
	query := `
		INSERT INTO companies (user_id, name, cash, max_employees, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + companyColumns
	c, err := r.one(ctx, query, userID, name, cash, maxEmployees)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return c, nil
}

// Get returns a company by ID, locking the row if forUpdate.
// Returns ErrCompanyNotFound if it does not exist.
func (r *CompanyRepository) Get(ctx context.Context, id int64, forUpdate bool) (*model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1` + lockClause(forUpdate)
	c, err := r.one(ctx, query, id)
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// GetByUserID returns the company owned by userID.
func (r *CompanyRepository) GetByUserID(ctx context.Context, userID int64) (*model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE user_id = $1`
	c, err := r.one(ctx, query, userID)
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListIDs returns every company ID.
func (r *CompanyRepository) ListIDs(ctx context.Context) ([]int64, error) {
	ids, err := r.ids(ctx, `SELECT id FROM companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return ids, nil
}

// ListPayrollDue returns companies whose last payroll is at or before
// cutoff, or that never ran payroll.
func (r *CompanyRepository) ListPayrollDue(ctx context.Context, cutoff time.Time) ([]int64, error) {
	const query = `
		SELECT id FROM companies
		WHERE last_payroll_at IS NULL OR last_payroll_at <= $1
		ORDER BY id
	`
	ids, err := r.ids(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll due: %w", err)
	}
	return ids, nil
}

// ListInsolvent returns companies with negative cash.
func (r *CompanyRepository) ListInsolvent(ctx context.Context) ([]int64, error) {
	ids, err := r.ids(ctx, `SELECT id FROM companies WHERE cash < 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list insolvent companies: %w", err)
	}
	return ids, nil
}

// AddCash adds delta to a company's cash and returns the new balance.
func (r *CompanyRepository) AddCash(ctx context.Context, id, delta int64) (int64, error) {
	const query = `
		UPDATE companies SET cash = cash + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING cash
	`
	var cash int64
	if err := r.q.QueryRow(ctx, query, id, delta).Scan(&cash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCompanyNotFound
		}
		return 0, fmt.Errorf("failed to add cash: %w", err)
	}
	return cash, nil
}

// AddXP adds xp to a company.
func (r *CompanyRepository) AddXP(ctx context.Context, id, xp int64) error {
	const query = `UPDATE companies SET xp = xp + $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id, xp); err != nil {
		return fmt.Errorf("failed to add company xp: %w", err)
	}
	return nil
}

// Save writes every mutable column of c.
func (r *CompanyRepository) Save(ctx context.Context, c *model.Company) error {
	const query = `
		UPDATE companies
		SET company_level = $2,
			max_employees = $3,
			cash = $4,
			monthly_revenue = $5,
			monthly_costs = $6,
			xp = $7,
			bankruptcy_count = $8,
			last_payroll_at = $9,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		c.ID,
		c.Level,
		c.MaxEmployees,
		c.Cash,
		c.MonthlyRevenue,
		c.MonthlyCosts,
		c.XP,
		c.BankruptcyCount,
		c.LastPayrollAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

// GetTopCompanies returns the highest ranked companies by level, then xp,
// then cash.
func (r *CompanyRepository) GetTopCompanies(ctx context.Context, limit int) ([]model.Company, error) {
	query := `
		SELECT ` + companyColumns + `
		FROM companies
		ORDER BY company_level DESC, xp DESC, cash DESC, id
		LIMIT $1
	`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top companies: %w", err)
	}
	companies, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Company])
	if err != nil {
		return nil, fmt.Errorf("failed to scan top companies: %w", err)
	}
	return companies, nil
}
