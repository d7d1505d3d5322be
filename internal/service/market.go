package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/notify"
)

// MarketService injects market events and reports the modifiers in force.
type MarketService struct {
	deps Deps
}

// NewMarketService creates a new MarketService instance.
func NewMarketService(deps Deps) *MarketService {
	return &MarketService{deps: deps.withDefaults()}
}

// Tick rolls for a new market event, then removes events that ended more
// than the retention window ago. A failed cleanup is logged only.
func (s *MarketService) Tick(ctx context.Context) (Result, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateMarket(); err != nil {
		return Result{}, err
	}
	now := s.deps.Clock.Now()
	repos := s.deps.repos()

	var res Result
	if ev, ok := game.MaybeCreateEvent(s.deps.Rand, bal.Market, now); ok {
		if err := repos.Market.Create(ctx, &ev); err != nil {
			return res, fmt.Errorf("failed to inject market event: %w", err)
		}
		res.Rows = 1
		log.Info().
			Str("category", ev.Category).
			Float64("magnitude", ev.Magnitude).
			Time("end", ev.EndTime).
			Msg("Market event started")
		s.deps.Emitter.Emit(notify.NewEvent(model.EventMarketEvent, now, map[string]any{
			"category":  ev.Category,
			"magnitude": ev.Magnitude,
			"start":     ev.StartTime,
			"end":       ev.EndTime,
		}))
	}

	if bal.Market.Retention > 0 {
		n, err := repos.Market.DeleteEndedBefore(ctx, now.Add(-bal.Market.Retention))
		if err != nil {
			log.Warn().Err(err).Msg("Market event cleanup failed")
		} else if n > 0 {
			log.Debug().Int64("deleted", n).Msg("Expired market events removed")
		}
	}
	return res, nil
}

// Modifiers returns the composed multipliers of the events active now.
func (s *MarketService) Modifiers(ctx context.Context) (game.Modifiers, error) {
	now := s.deps.Clock.Now()
	events, err := s.deps.repos().Market.ListActive(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load market modifiers: %w", err)
	}
	return game.ModifiersAt(events, now), nil
}
