package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tycoon-engine/internal/model"
	"tycoon-engine/internal/pkg/db"
)

// AutomationRepository handles per-company automation toggles.
type AutomationRepository struct {
	q db.Querier
}

// NewAutomationRepository creates a new AutomationRepository instance.
func NewAutomationRepository(q db.Querier) *AutomationRepository {
	return &AutomationRepository{q: q}
}

// Get returns a company's settings, or the defaults if it has none.
func (r *AutomationRepository) Get(ctx context.Context, companyID int64) (model.AutomationSettings, error) {
	const query = `
		SELECT company_id, auto_assign, auto_accept, auto_rest
		FROM automation_settings
		WHERE company_id = $1
	`
	var s model.AutomationSettings
	err := r.q.QueryRow(ctx, query, companyID).Scan(&s.CompanyID, &s.AutoAssign, &s.AutoAccept, &s.AutoRest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DefaultAutomation(companyID), nil
		}
		return s, fmt.Errorf("failed to get automation settings: %w", err)
	}
	return s, nil
}

// Upsert stores s.
func (r *AutomationRepository) Upsert(ctx context.Context, s model.AutomationSettings) error {
	const query = `
		INSERT INTO automation_settings (company_id, auto_assign, auto_accept, auto_rest)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_id) DO UPDATE SET
			auto_assign = EXCLUDED.auto_assign,
			auto_accept = EXCLUDED.auto_accept,
			auto_rest = EXCLUDED.auto_rest
	`
	if _, err := r.q.Exec(ctx, query, s.CompanyID, s.AutoAssign, s.AutoAccept, s.AutoRest); err != nil {
		return fmt.Errorf("failed to save automation settings: %w", err)
	}
	return nil
}
