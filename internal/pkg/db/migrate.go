package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"tycoon-engine/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS game_states (
		user_id BIGINT PRIMARY KEY,
		money BIGINT NOT NULL DEFAULT 0,
		click_power BIGINT NOT NULL DEFAULT 1,
		auto_income BIGINT NOT NULL DEFAULT 0,
		xp BIGINT NOT NULL DEFAULT 0,
		level INT NOT NULL DEFAULT 1,
		reputation BIGINT NOT NULL DEFAULT 0,
		prestige_level INT NOT NULL DEFAULT 0,
		projects_completed BIGINT NOT NULL DEFAULT 0,
		last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS companies (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES game_states(user_id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		company_level INT NOT NULL DEFAULT 1,
		max_employees INT NOT NULL DEFAULT 3,
		cash BIGINT NOT NULL DEFAULT 0,
		monthly_revenue BIGINT NOT NULL DEFAULT 0,
		monthly_costs BIGINT NOT NULL DEFAULT 0,
		xp BIGINT NOT NULL DEFAULT 0,
		bankruptcy_count INT NOT NULL DEFAULT 0,
		last_payroll_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id BIGSERIAL PRIMARY KEY,
		company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		difficulty INT NOT NULL CHECK (difficulty BETWEEN 1 AND 10),
		reward BIGINT NOT NULL DEFAULT 0,
		progress DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
		status VARCHAR(16) NOT NULL DEFAULT 'queued'
			CHECK (status IN ('queued', 'in_progress', 'completed', 'failed')),
		started_at TIMESTAMPTZ,
		deadline TIMESTAMPTZ,
		last_progress_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		claimed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_company_status ON projects(company_id, status)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id BIGSERIAL PRIMARY KEY,
		company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL,
		productivity DOUBLE PRECISION NOT NULL,
		skill_level INT NOT NULL DEFAULT 1,
		salary BIGINT NOT NULL,
		energy DOUBLE PRECISION NOT NULL DEFAULT 100 CHECK (energy BETWEEN 0 AND 100),
		morale DOUBLE PRECISION NOT NULL DEFAULT 100 CHECK (morale BETWEEN 0 AND 100),
		status VARCHAR(16) NOT NULL DEFAULT 'idle'
			CHECK (status IN ('working', 'idle', 'resting', 'quit')),
		project_id BIGINT REFERENCES projects(id) ON DELETE SET NULL,
		last_tick_at TIMESTAMPTZ,
		hired_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_employees_company_status ON employees(company_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_employees_project ON employees(project_id)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		project_id BIGINT UNIQUE REFERENCES projects(id) ON DELETE SET NULL,
		name VARCHAR(255) NOT NULL,
		base_monthly_revenue BIGINT NOT NULL,
		current_revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
		upkeep BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'paused', 'retired')),
		last_revenue_at TIMESTAMPTZ,
		launched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS product_bugs (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		severity INT NOT NULL CHECK (severity > 0),
		status VARCHAR(16) NOT NULL DEFAULT 'open'
			CHECK (status IN ('open', 'fixing', 'fixed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		fixed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_bugs_product ON product_bugs(product_id, status)`,
	`CREATE TABLE IF NOT EXISTS market_events (
		id BIGSERIAL PRIMARY KEY,
		category VARCHAR(32) NOT NULL,
		magnitude DOUBLE PRECISION NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_market_events_end ON market_events(end_time)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		code VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		requirement VARCHAR(32) NOT NULL,
		threshold BIGINT NOT NULL,
		reward BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		user_id BIGINT NOT NULL REFERENCES game_states(user_id) ON DELETE CASCADE,
		achievement_code VARCHAR(64) NOT NULL REFERENCES achievements(code),
		unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		notified BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (user_id, achievement_code)
	)`,
	`CREATE TABLE IF NOT EXISTS automation_settings (
		company_id BIGINT PRIMARY KEY REFERENCES companies(id) ON DELETE CASCADE,
		auto_assign BOOLEAN NOT NULL DEFAULT FALSE,
		auto_accept BOOLEAN NOT NULL DEFAULT FALSE,
		auto_rest BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS bankruptcies (
		id BIGSERIAL PRIMARY KEY,
		company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		cash_before BIGINT NOT NULL,
		employee_count INT NOT NULL,
		projects_failed INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS job_runs (
		kind VARCHAR(64) PRIMARY KEY,
		last_run_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate applies the schema and upserts the achievement catalog.
// Every statement is idempotent.
func Migrate(ctx context.Context, q Querier, catalog []model.Achievement) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	const seed = `
		INSERT INTO achievements (code, name, description, requirement, threshold, reward)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			requirement = EXCLUDED.requirement,
			threshold = EXCLUDED.threshold,
			reward = EXCLUDED.reward
	`
	for _, a := range catalog {
		if _, err := q.Exec(ctx, seed, a.Code, a.Name, a.Description, string(a.Requirement), a.Threshold, a.Reward); err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", a.Code, err)
		}
	}

	log.Info().
		Int("tables", len(schema)).
		Int("achievements", len(catalog)).
		Msg("Database schema migrated")
	return nil
}
