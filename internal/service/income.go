package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/repository"
)

// IncomeService credits idle income to game states.
type IncomeService struct {
	deps Deps
}

// NewIncomeService creates a new IncomeService instance.
func NewIncomeService(deps Deps) *IncomeService {
	return &IncomeService{deps: deps.withDefaults()}
}

// Tick credits every game state last active at least one interval ago.
func (s *IncomeService) Tick(ctx context.Context) (Result, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateIncome(); err != nil {
		return Result{}, err
	}
	if err := bal.ValidateTick(); err != nil {
		return Result{}, err
	}
	now := s.deps.Clock.Now()
	interval := s.deps.Jobs.IdleIncome
	maxOffline := game.MaxOffline(bal.Income.OfflineMaxHours)

	ids, err := s.deps.repos().GameStates.ListIncomeDue(ctx, cutoff(now, interval, bal.Tick.RowSlack))
	if err != nil {
		return Result{}, fmt.Errorf("failed to list due game states: %w", err)
	}

	return forEachRow(ctx, JobIdleIncome, s.deps.Workers, ids, func(ctx context.Context, userID int64) error {
		_, err := s.credit(ctx, userID, now, maxOffline, func(last time.Time) bool {
			return game.RowDue(&last, now, interval, bal.Tick.RowSlack)
		})
		return err
	})
}

// CatchUp credits a returning player for the time since last_active, up to
// the offline cap, and reports what was credited and discarded.
func (s *IncomeService) CatchUp(ctx context.Context, userID int64) (game.IncomeStep, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateIncome(); err != nil {
		return game.IncomeStep{}, err
	}
	now := s.deps.Clock.Now()
	step, err := s.credit(ctx, userID, now, game.MaxOffline(bal.Income.OfflineMaxHours), nil)
	if err != nil {
		return game.IncomeStep{}, err
	}
	log.Info().
		Int64("user_id", userID).
		Int64("credit", step.Credit).
		Dur("elapsed", step.Elapsed).
		Dur("discarded", step.Discarded).
		Msg("Offline income caught up")
	return step, nil
}

// credit applies the income since last_active and moves last_active to now
// in one transaction. due, when set, can veto a row that is no longer due.
func (s *IncomeService) credit(ctx context.Context, userID int64, now time.Time, maxOffline time.Duration, due func(last time.Time) bool) (game.IncomeStep, error) {
	var step game.IncomeStep
	err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
		gs, err := r.GameStates.Get(ctx, userID, true)
		if err != nil {
			return err
		}
		if due != nil && !due(gs.LastActive) {
			return errSkip
		}
		step = game.OfflineIncome(gs.LastActive, now, gs.AutoIncome, maxOffline)
		_, err = r.GameStates.ApplyIncome(ctx, userID, step.Credit, now)
		return err
	})
	if err != nil {
		return game.IncomeStep{}, err
	}
	if step.Credit > 0 {
		s.deps.Dirty.Enqueue(userID)
	}
	return step, nil
}
