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

const productColumns = `id, company_id, project_id, name, base_monthly_revenue, current_revenue,
	upkeep, status, last_revenue_at, launched_at`

const bugColumns = `id, product_id, severity, status, created_at, fixed_at`

// ProductRepository handles products and their bugs.
type ProductRepository struct {
	q db.Querier
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(q db.Querier) *ProductRepository {
	return &ProductRepository{q: q}
}

// Create inserts p and fills in its ID.
func (r *ProductRepository) Create(ctx context.Context, p *model.Product) error {
	const query = `
		INSERT INTO products (company_id, project_id, name, base_monthly_revenue, current_revenue,
			upkeep, status, last_revenue_at, launched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		p.CompanyID,
		p.ProjectID,
		p.Name,
		p.BaseMonthlyRevenue,
		p.CurrentRevenue,
		p.Upkeep,
		string(p.Status),
		p.LastRevenueAt,
		p.LaunchedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Get returns a product, locking the row if forUpdate.
func (r *ProductRepository) Get(ctx context.Context, id int64, forUpdate bool) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1` + lockClause(forUpdate)
	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// ListRevenueDue returns active products last credited at or before cutoff.
func (r *ProductRepository) ListRevenueDue(ctx context.Context, cutoff time.Time) ([]int64, error) {
	const query = `
		SELECT id FROM products
		WHERE status = 'active' AND (last_revenue_at IS NULL OR last_revenue_at <= $1)
		ORDER BY id
	`
	return r.ids(ctx, "failed to list revenue due", query, cutoff)
}

// ListActive returns every active product ID.
func (r *ProductRepository) ListActive(ctx context.Context) ([]int64, error) {
	return r.ids(ctx, "failed to list active products", `SELECT id FROM products WHERE status = 'active' ORDER BY id`)
}

func (r *ProductRepository) ids(ctx context.Context, msg, query string, args ...any) ([]int64, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	return ids, nil
}

// Save writes the mutable columns of p.
func (r *ProductRepository) Save(ctx context.Context, p *model.Product) error {
	const query = `
		UPDATE products
		SET current_revenue = $2, status = $3, last_revenue_at = $4
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query, p.ID, p.CurrentRevenue, string(p.Status), p.LastRevenueAt)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SumMonthlyRevenue returns the current revenue of a company's active products.
func (r *ProductRepository) SumMonthlyRevenue(ctx context.Context, companyID int64) (int64, error) {
	const query = `
		SELECT COALESCE(ROUND(SUM(current_revenue)), 0)::BIGINT
		FROM products
		WHERE company_id = $1 AND status = 'active'
	`
	var sum int64
	if err := r.q.QueryRow(ctx, query, companyID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return sum, nil
}

// CreateBug inserts b and fills in its ID.
func (r *ProductRepository) CreateBug(ctx context.Context, b *model.ProductBug) error {
	const query = `
		INSERT INTO product_bugs (product_id, severity, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.q.QueryRow(ctx, query, b.ProductID, b.Severity, string(b.Status), b.CreatedAt).Scan(&b.ID); err != nil {
		return fmt.Errorf("failed to create bug: %w", err)
	}
	return nil
}

// GetBug returns a bug, locking the row if forUpdate.
func (r *ProductRepository) GetBug(ctx context.Context, id int64, forUpdate bool) (*model.ProductBug, error) {
	query := `SELECT ` + bugColumns + ` FROM product_bugs WHERE id = $1` + lockClause(forUpdate)
	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bug: %w", err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.ProductBug])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBugNotFound
		}
		return nil, fmt.Errorf("failed to get bug: %w", err)
	}
	return &b, nil
}

// ListOpenBugs returns a product's bugs that are not fixed.
func (r *ProductRepository) ListOpenBugs(ctx context.Context, productID int64) ([]model.ProductBug, error) {
	query := `SELECT ` + bugColumns + ` FROM product_bugs WHERE product_id = $1 AND status <> 'fixed' ORDER BY id`
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bugs: %w", err)
	}
	bugs, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.ProductBug])
	if err != nil {
		return nil, fmt.Errorf("failed to list bugs: %w", err)
	}
	return bugs, nil
}

// SaveBug writes a bug's status and fix time.
func (r *ProductRepository) SaveBug(ctx context.Context, b *model.ProductBug) error {
	const query = `UPDATE product_bugs SET status = $2, fixed_at = $3 WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, b.ID, string(b.Status), b.FixedAt)
	if err != nil {
		return fmt.Errorf("failed to save bug: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBugNotFound
	}
	return nil
}
