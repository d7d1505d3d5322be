package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tycoon-engine/internal/model"
	"tycoon-engine/internal/pkg/db"
)

// AchievementRepository handles the catalog and per-user unlocks.
type AchievementRepository struct {
	q db.Querier
}

// NewAchievementRepository creates a new AchievementRepository instance.
func NewAchievementRepository(q db.Querier) *AchievementRepository {
	return &AchievementRepository{q: q}
}

// ListCatalog returns every achievement definition.
func (r *AchievementRepository) ListCatalog(ctx context.Context) ([]model.Achievement, error) {
	const query = `
		SELECT code, name, description, requirement, threshold, reward
		FROM achievements
		ORDER BY code
	`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	catalog, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Achievement])
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return catalog, nil
}

// UnlockedCodes returns the codes userID has unlocked.
func (r *AchievementRepository) UnlockedCodes(ctx context.Context, userID int64) (map[string]bool, error) {
	rows, err := r.q.Query(ctx, `SELECT achievement_code FROM user_achievements WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked achievements: %w", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked achievements: %w", err)
	}
	out := make(map[string]bool, len(codes))
	for _, c := range codes {
		out[c] = true
	}
	return out, nil
}

// Unlock records code for userID. It returns false when the achievement
// was already unlocked, in which case nothing changes.
func (r *AchievementRepository) Unlock(ctx context.Context, userID int64, code string, at time.Time) (bool, error) {
	const query = `
		INSERT INTO user_achievements (user_id, achievement_code, unlocked_at, notified)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (user_id, achievement_code) DO NOTHING
	`
	tag, err := r.q.Exec(ctx, query, userID, code, at)
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListUnnotified returns userID's unlocks not yet delivered.
func (r *AchievementRepository) ListUnnotified(ctx context.Context, userID int64) ([]model.UserAchievement, error) {
	const query = `
		SELECT user_id, achievement_code, unlocked_at, notified
		FROM user_achievements
		WHERE user_id = $1 AND NOT notified
		ORDER BY unlocked_at, achievement_code
	`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unnotified achievements: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.UserAchievement])
	if err != nil {
		return nil, fmt.Errorf("failed to list unnotified achievements: %w", err)
	}
	return out, nil
}

// MarkNotified flags the given unlocks as delivered.
func (r *AchievementRepository) MarkNotified(ctx context.Context, userID int64, codes []string) (int64, error) {
	const query = `
		UPDATE user_achievements SET notified = TRUE
		WHERE user_id = $1 AND achievement_code = ANY($2) AND NOT notified
	`
	tag, err := r.q.Exec(ctx, query, userID, codes)
	if err != nil {
		return 0, fmt.Errorf("failed to mark achievements notified: %w", err)
	}
	return tag.RowsAffected(), nil
}
