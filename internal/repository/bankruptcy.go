package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tycoon-engine/internal/model"
	"tycoon-engine/internal/pkg/db"
)

// BankruptcyRepository stores the audit trail of bankruptcy cascades.
type BankruptcyRepository struct {
	q db.Querier
}

// NewBankruptcyRepository creates a new BankruptcyRepository instance.
func NewBankruptcyRepository(q db.Querier) *BankruptcyRepository {
	return &BankruptcyRepository{q: q}
}

// Create inserts b and fills in its ID.
func (r *BankruptcyRepository) Create(ctx context.Context, b *model.Bankruptcy) error {
	const query = `
		INSERT INTO bankruptcies (company_id, cash_before, employee_count, projects_failed, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query, b.CompanyID, b.CashBefore, b.EmployeeCount, b.ProjectsFailed, b.CreatedAt).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("failed to record bankruptcy: %w", err)
	}
	return nil
}

// ListByCompany returns a company's bankruptcies, newest first.
func (r *BankruptcyRepository) ListByCompany(ctx context.Context, companyID int64) ([]model.Bankruptcy, error) {
	const query = `
		SELECT id, company_id, cash_before, employee_count, projects_failed, created_at
		FROM bankruptcies
		WHERE company_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bankruptcies: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Bankruptcy])
	if err != nil {
		return nil, fmt.Errorf("failed to list bankruptcies: %w", err)
	}
	return out, nil
}
