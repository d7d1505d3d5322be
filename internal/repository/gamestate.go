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

const gameStateColumns = `user_id, money, click_power, auto_income, xp, level, reputation,
	prestige_level, projects_completed, last_active, updated_at`

// GameStateRepository handles player idle-economy records.
type GameStateRepository struct {
	q db.Querier
}

// NewGameStateRepository creates a new GameStateRepository instance.
func NewGameStateRepository(q db.Querier) *GameStateRepository {
	return &GameStateRepository{q: q}
}

func (r *GameStateRepository) one(ctx context.Context, query string, args ...any) (*model.GameState, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	gs, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.GameState])
	if err != nil {
		return nil, notFound(err, ErrGameStateNotFound)
	}
	return &gs, nil
}

// Create creates a game state for userID, active since now.
func (r *GameStateRepository) Create(ctx context.Context, userID int64, money, autoIncome int64, now time.Time) (*model.GameState, error) {
	query := `
		INSERT INTO game_states (user_id, money, auto_income, last_active, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + gameStateColumns
	gs, err := r.one(ctx, query, userID, money, autoIncome, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create game state: %w", err)
	}
	return gs, nil
}

// Get returns the game state of userID, locking the row if forUpdate.
// Returns ErrGameStateNotFound if the user has none.
func (r *GameStateRepository) Get(ctx context.Context, userID int64, forUpdate bool) (*model.GameState, error) {
	query := `SELECT ` + gameStateColumns + ` FROM game_states WHERE user_id = $1` + lockClause(forUpdate)
	gs, err := r.one(ctx, query, userID)
	if err != nil {
		if errors.Is(err, ErrGameStateNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}
	return gs, nil
}

// ListUserIDs returns every user with a game state.
func (r *GameStateRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT user_id FROM game_states ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

// ListIncomeDue returns users whose last_active is at or before cutoff.
// States without auto income are included so their watermark keeps moving.
func (r *GameStateRepository) ListIncomeDue(ctx context.Context, cutoff time.Time) ([]int64, error) {
	const query = `
		SELECT user_id FROM game_states
		WHERE last_active <= $1
		ORDER BY user_id
	`
	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list income due: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to list income due: %w", err)
	}
	return ids, nil
}

// ApplyIncome credits amount and moves last_active to now.
func (r *GameStateRepository) ApplyIncome(ctx context.Context, userID, amount int64, now time.Time) (*model.GameState, error) {
	query := `
		UPDATE game_states
		SET money = money + $2, last_active = $3, updated_at = $3
		WHERE user_id = $1
		RETURNING ` + gameStateColumns
	gs, err := r.one(ctx, query, userID, amount, now)
	if err != nil {
		return nil, fmt.Errorf("failed to apply income: %w", err)
	}
	return gs, nil
}

// AddMoney adds amount to the user's money. amount may be negative.
func (r *GameStateRepository) AddMoney(ctx context.Context, userID, amount int64) error {
	const query = `UPDATE game_states SET money = money + $2, updated_at = NOW() WHERE user_id = $1`
	tag, err := r.q.Exec(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to add money: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGameStateNotFound
	}
	return nil
}

// Progress is a set of deltas applied to a game state.
type Progress struct {
	Money             int64
	XP                int64
	Reputation        int64
	ProjectsCompleted int64
}

// ApplyProgress adds the deltas. Reputation never drops below zero.
func (r *GameStateRepository) ApplyProgress(ctx context.Context, userID int64, p Progress) (*model.GameState, error) {
	query := `
		UPDATE game_states
		SET money = money + $2,
			xp = xp + $3,
			reputation = GREATEST(0, reputation + $4),
			projects_completed = projects_completed + $5,
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + gameStateColumns
	gs, err := r.one(ctx, query, userID, p.Money, p.XP, p.Reputation, p.ProjectsCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to apply progress: %w", err)
	}
	return gs, nil
}

// SetLevel raises the player level. A lower level is ignored.
func (r *GameStateRepository) SetLevel(ctx context.Context, userID int64, level int) error {
	const query = `UPDATE game_states SET level = GREATEST(level, $2), updated_at = NOW() WHERE user_id = $1`
	if _, err := r.q.Exec(ctx, query, userID, level); err != nil {
		return fmt.Errorf("failed to set level: %w", err)
	}
	return nil
}

// Stats aggregates what achievements are evaluated on.
func (r *GameStateRepository) Stats(ctx context.Context, userID int64) (model.UserStats, error) {
	const query = `
		SELECT g.user_id, g.money, g.level, g.projects_completed, g.reputation, g.prestige_level,
			COALESCE((
				SELECT COUNT(*) FROM employees e
				JOIN companies c ON c.id = e.company_id
				WHERE c.user_id = g.user_id
			), 0)
		FROM game_states g
		WHERE g.user_id = $1
	`
	var s model.UserStats
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.Money,
		&s.Level,
		&s.ProjectsCompleted,
		&s.Reputation,
		&s.PrestigeLevel,
		&s.EmployeesHired,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, ErrGameStateNotFound
		}
		return s, fmt.Errorf("failed to get stats: %w", err)
	}
	return s, nil
}
