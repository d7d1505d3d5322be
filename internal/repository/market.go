package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tycoon-engine/internal/model"
	"tycoon-engine/internal/pkg/db"
)

// MarketRepository handles market events.
type MarketRepository struct {
	q db.Querier
}

// NewMarketRepository creates a new MarketRepository instance.
func NewMarketRepository(q db.Querier) *MarketRepository {
	return &MarketRepository{q: q}
}

// Create inserts ev and fills in its ID.
func (r *MarketRepository) Create(ctx context.Context, ev *model.MarketEvent) error {
	const query = `
		INSERT INTO market_events (category, magnitude, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.q.QueryRow(ctx, query, ev.Category, ev.Magnitude, ev.StartTime, ev.EndTime).Scan(&ev.ID); err != nil {
		return fmt.Errorf("failed to create market event: %w", err)
	}
	return nil
}

// ListActive returns events with start <= at < end.
func (r *MarketRepository) ListActive(ctx context.Context, at time.Time) ([]model.MarketEvent, error) {
	const query = `
		SELECT id, category, magnitude, start_time, end_time
		FROM market_events
		WHERE start_time <= $1 AND end_time > $1
		ORDER BY start_time, id
	`
	rows, err := r.q.Query(ctx, query, at)
	if err != nil {
		return nil, fmt.Errorf("failed to list market events: %w", err)
	}
	events, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.MarketEvent])
	if err != nil {
		return nil, fmt.Errorf("failed to list market events: %w", err)
	}
	return events, nil
}

// DeleteEndedBefore removes events that ended before cutoff.
func (r *MarketRepository) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM market_events WHERE end_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete market events: %w", err)
	}
	return tag.RowsAffected(), nil
}
