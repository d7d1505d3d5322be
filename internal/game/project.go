package game

import (
	"math"
	"sort"
	"time"

	"tycoon-engine/internal/config"
	"tycoon-engine/internal/model"
)

// ProjectStep is the outcome of advancing one project by one tick.
type ProjectStep struct {
	Project model.Project
	From    model.ProjectStatus
	Delta   float64
	// Penalty is the reputation lost when the project failed.
	Penalty int64
	// Released are the assignees that go back to idle.
	Released []int64
}

// Completed reports whether this step completed the project.
func (s ProjectStep) Completed() bool {
	return s.From != model.ProjectCompleted && s.Project.Status == model.ProjectCompleted
}

// Failed reports whether this step failed the project.
func (s ProjectStep) Failed() bool {
	return s.From != model.ProjectFailed && s.Project.Status == model.ProjectFailed
}

// EffectiveProductivity applies the skill bonus to an employee's base
// productivity. Skill level 1 is the baseline.
func EffectiveProductivity(e model.Employee, b config.ProjectBalance) float64 {
	skill := e.SkillLevel
	if skill < 1 {
		skill = 1
	}
	return e.Productivity * (1 + b.SkillBonus*float64(skill-1))
}

// ProgressPerMinute is the percentage a team adds to a project each minute.
// Working members are ranked by effective productivity and the k-th best
// (0-based) contributes with weight diminishing^k.
func ProgressPerMinute(team []model.Employee, difficulty int, b config.ProjectBalance) float64 {
	if difficulty < MinDifficulty {
		difficulty = MinDifficulty
	}
	effs := make([]float64, 0, len(team))
	for _, e := range team {
		if e.Status != model.EmployeeWorking {
			continue
		}
		effs = append(effs, EffectiveProductivity(e, b))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(effs)))

	var sum float64
	weight := 1.0
	for _, eff := range effs {
		sum += eff * weight
		weight *= b.DiminishingFactor
	}
	return sum * b.ProgressRate / float64(difficulty)
}

// Deadline returns the deadline of a project started at start.
func Deadline(start time.Time, difficulty int, b config.ProjectBalance) time.Time {
	hours := float64(difficulty) * b.DeadlineHoursPerDifficulty
	return start.Add(time.Duration(hours * float64(time.Hour)))
}

// AdvanceProject accrues progress for an in-progress project. team is every
// employee assigned to it; only working ones contribute. Progress accrues
// over [last_progress_at, min(now, deadline)] so nothing is earned past the
// deadline. Reaching 100 completes the project even when the deadline has
// also passed.
func AdvanceProject(p model.Project, team []model.Employee, bal *config.Balance, now time.Time) (ProjectStep, error) {
	step := ProjectStep{From: p.Status}
	if p.Status != model.ProjectInProgress {
		step.Project = p
		return step, ErrProjectNotRunning
	}
	b := bal.Project

	var from time.Time
	switch {
	case p.LastProgressAt != nil:
		from = *p.LastProgressAt
	case p.StartedAt != nil:
		from = *p.StartedAt
	}
	until := now
	if p.Deadline != nil && p.Deadline.Before(until) {
		until = *p.Deadline
	}

	m := elapsedMinutes(from, until, bal.Tick.MaxElapsedMinutes)
	before := p.Progress
	p.Progress = math.Min(100, p.Progress+ProgressPerMinute(team, p.Difficulty, b)*m)
	step.Delta = p.Progress - before

	t := now
	p.LastProgressAt = &t

	switch {
	case p.Progress >= 100:
		p.Status = model.ProjectCompleted
		p.CompletedAt = &t
		step.Released = assigneeIDs(team, p.ID)
	case p.Deadline != nil && now.After(*p.Deadline):
		p.Status = model.ProjectFailed
		step.Penalty = FailurePenalty(p.Difficulty, b)
		step.Released = assigneeIDs(team, p.ID)
	}

	step.Project = p
	return step, nil
}

// FailurePenalty is the reputation lost when a project of difficulty fails.
func FailurePenalty(difficulty int, b config.ProjectBalance) int64 {
	return int64(difficulty) * b.ReputationPenaltyPerDifficulty
}

// FailProject fails an open project outside the normal tick, as the
// bankruptcy cascade does.
func FailProject(p model.Project, b config.ProjectBalance) (model.Project, int64, error) {
	status, err := p.Status.Transition(model.ProjectFailed)
	if err != nil {
		return p, 0, err
	}
	p.Status = status
	return p, FailurePenalty(p.Difficulty, b), nil
}

// AcceptProject starts a queued project at now and stamps its deadline.
func AcceptProject(p model.Project, b config.ProjectBalance, now time.Time) (model.Project, error) {
	if p.Status != model.ProjectQueued {
		return p, ErrProjectNotQueued
	}
	if p.Difficulty < MinDifficulty || p.Difficulty > MaxDifficulty {
		return p, ErrInvalidDifficulty
	}
	status, err := p.Status.Transition(model.ProjectInProgress)
	if err != nil {
		return p, err
	}
	t := now
	d := Deadline(now, p.Difficulty, b)
	p.Status = status
	p.StartedAt = &t
	p.LastProgressAt = &t
	p.Deadline = &d
	return p, nil
}

// ClaimReward is the money credited when a completed project is claimed.
func ClaimReward(p model.Project, bal *config.Balance, mods Modifiers) int64 {
	return int64(math.Round(float64(p.Reward) * bal.RewardMultiplier * mods.Get(model.CategoryRewards)))
}

// ProjectXP is the XP a completed project grants.
func ProjectXP(p model.Project, b config.ProjectBalance) int64 {
	return int64(p.Difficulty) * b.XPPerDifficulty
}

func assigneeIDs(team []model.Employee, projectID int64) []int64 {
	var ids []int64
	for _, e := range team {
		if e.ProjectID != nil && *e.ProjectID == projectID {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
