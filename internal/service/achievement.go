package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/notify"
	"tycoon-engine/internal/repository"
)

// AchievementService evaluates achievements for users whose stats changed
// and records unlocks.
type AchievementService struct {
	deps    Deps
	catalog []model.Achievement

	mu    sync.Mutex
	dirty map[int64]struct{}
}

// NewAchievementService creates a new AchievementService over catalog.
func NewAchievementService(deps Deps, catalog []model.Achievement) *AchievementService {
	return &AchievementService{
		deps:    deps.withDefaults(),
		catalog: catalog,
		dirty:   make(map[int64]struct{}),
	}
}

// Enqueue marks a user for evaluation on the next Tick. The set lives in
// memory; users still in it when the process exits are left to Sweep.
func (s *AchievementService) Enqueue(userID int64) {
	s.mu.Lock()
	s.dirty[userID] = struct{}{}
	s.mu.Unlock()
}

// Pending returns how many users wait for evaluation.
func (s *AchievementService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

func (s *AchievementService) drain() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	s.dirty = make(map[int64]struct{})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Tick evaluates every user enqueued since the last run. Users whose
// evaluation fails are enqueued again.
func (s *AchievementService) Tick(ctx context.Context) (Result, error) {
	return s.run(ctx, JobAchievements, s.drain())
}

// Sweep evaluates every user. It catches changes no service enqueued.
func (s *AchievementService) Sweep(ctx context.Context) (Result, error) {
	ids, err := s.deps.repos().GameStates.ListUserIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list users: %w", err)
	}
	return s.run(ctx, JobAchievementsSweep, ids)
}

func (s *AchievementService) run(ctx context.Context, job string, ids []int64) (Result, error) {
	return forEachRow(ctx, job, s.deps.Workers, ids, func(ctx context.Context, userID int64) error {
		unlocked, err := s.Evaluate(ctx, userID)
		if err != nil {
			s.Enqueue(userID)
			return err
		}
		if len(unlocked) == 0 {
			return errSkip
		}
		return nil
	})
}

// Evaluate scores the catalog against a user's stats and unlocks whatever
// crossed its threshold, crediting each reward once.
func (s *AchievementService) Evaluate(ctx context.Context, userID int64) ([]model.Achievement, error) {
	now := s.deps.Clock.Now()

	var (
		unlocked []model.Achievement
		events   []notify.Event
	)
	err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
		unlocked, events = nil, nil
		// serializes evaluations of the same user
		if _, err := r.GameStates.Get(ctx, userID, true); err != nil {
			return err
		}
		stats, err := r.GameStates.Stats(ctx, userID)
		if err != nil {
			return err
		}
		have, err := r.Achievements.UnlockedCodes(ctx, userID)
		if err != nil {
			return err
		}

		for _, a := range game.Newly(game.EvaluateAchievements(stats, s.catalog, have)) {
			ok, err := r.Achievements.Unlock(ctx, userID, a.Code, now)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if a.Reward > 0 {
				if err := r.GameStates.AddMoney(ctx, userID, a.Reward); err != nil {
					return err
				}
			}
			unlocked = append(unlocked, a)
			events = append(events, notify.NewEvent(model.EventAchievementUnlocked, now, map[string]any{
				"code":   a.Code,
				"name":   a.Name,
				"reward": a.Reward,
			}).ForCompany(userID, 0))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range unlocked {
		log.Info().Int64("user_id", userID).Str("code", a.Code).Msg("Achievement unlocked")
	}
	s.deps.emit(events)
	if len(unlocked) > 0 {
		// a reward may push the money stat over the next threshold
		s.Enqueue(userID)
	}
	return unlocked, nil
}

// Progress scores the catalog for a user without unlocking anything.
func (s *AchievementService) Progress(ctx context.Context, userID int64) ([]game.AchievementProgress, error) {
	repos := s.deps.repos()
	stats, err := repos.GameStates.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	have, err := repos.Achievements.UnlockedCodes(ctx, userID)
	if err != nil {
		return nil, err
	}
	return game.EvaluateAchievements(stats, s.catalog, have), nil
}

// ListUnnotified returns a user's unlocks not yet delivered.
func (s *AchievementService) ListUnnotified(ctx context.Context, userID int64) ([]model.UserAchievement, error) {
	return s.deps.repos().Achievements.ListUnnotified(ctx, userID)
}

// MarkNotified flags unlocks as delivered and returns how many changed.
func (s *AchievementService) MarkNotified(ctx context.Context, userID int64, codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	return s.deps.repos().Achievements.MarkNotified(ctx, userID, codes)
}
