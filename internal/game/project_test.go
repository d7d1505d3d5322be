package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tycoon-engine/internal/model"
)

func runningProject(id int64, difficulty int, start time.Time) model.Project {
	p := model.Project{
		ID:         id,
		CompanyID:  1,
		Name:       "website",
		Difficulty: difficulty,
		Reward:     1000,
		Status:     model.ProjectQueued,
		CreatedAt:  start,
	}
	p, _ = AcceptProject(p, testBalance().Project, start)
	return p
}

func TestAcceptProject_Deadline(t *testing.T) {
	bal := testBalance()
	p := model.Project{ID: 1, Difficulty: 3, Status: model.ProjectQueued}

	accepted, err := AcceptProject(p, bal.Project, epoch)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectInProgress, accepted.Status)
	assert.Equal(t, epoch.Add(12*time.Hour), *accepted.Deadline)
	assert.Equal(t, epoch, *accepted.StartedAt)

	_, err = AcceptProject(accepted, bal.Project, epoch)
	assert.ErrorIs(t, err, ErrProjectNotQueued)

	p.Difficulty = 11
	_, err = AcceptProject(p, bal.Project, epoch)
	assert.ErrorIs(t, err, ErrInvalidDifficulty)
}

func TestAdvanceProject_JuniorOnDifficultyThree(t *testing.T) {
	bal := testBalance()
	p := runningProject(5, 3, epoch)
	team := []model.Employee{junior(1, 5, epoch)}
	perMinute := 50 * bal.Project.ProgressRate / 3

	now := epoch
	prev := 0.0
	for i := 1; i <= 30; i++ {
		now = now.Add(time.Minute)
		step, err := AdvanceProject(p, team, bal, now)
		require.NoError(t, err)
		p = step.Project
		assert.Greater(t, p.Progress, prev)
		assert.InDelta(t, perMinute*float64(i), p.Progress, 1e-9)
		prev = p.Progress
	}
	assert.Equal(t, model.ProjectInProgress, p.Status)
}

func TestAdvanceProject_DiminishingReturns(t *testing.T) {
	bal := testBalance()
	strong := junior(1, 5, epoch)
	strong.SkillLevel = 3 // 50 * 1.2 = 60
	weak := junior(2, 5, epoch)
	resting := junior(3, 5, epoch)
	resting.Status = model.EmployeeResting

	rate := ProgressPerMinute([]model.Employee{weak, resting, strong}, 2, bal.Project)
	want := (60 + 50*bal.Project.DiminishingFactor) * bal.Project.ProgressRate / 2
	assert.InDelta(t, want, rate, 1e-9)
}

func TestAdvanceProject_CompletionWinsOverDeadline(t *testing.T) {
	bal := testBalance()
	p := runningProject(5, 1, epoch)
	p.Progress = 99.9
	last := p.Deadline.Add(-time.Minute)
	p.LastProgressAt = &last
	team := []model.Employee{junior(1, 5, epoch)}

	step, err := AdvanceProject(p, team, bal, p.Deadline.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, step.Completed())
	assert.False(t, step.Failed())
	assert.Equal(t, 100.0, step.Project.Progress)
	assert.Equal(t, []int64{1}, step.Released)
	assert.Zero(t, step.Penalty)
}

func TestAdvanceProject_FailsPastDeadline(t *testing.T) {
	bal := testBalance()
	p := runningProject(5, 3, epoch)
	p.Progress = 10
	last := p.Deadline.Add(-time.Minute)
	p.LastProgressAt = &last
	team := []model.Employee{junior(1, 5, epoch)}

	step, err := AdvanceProject(p, team, bal, p.Deadline.Add(3*time.Minute))
	require.NoError(t, err)

	assert.True(t, step.Failed())
	assert.Equal(t, int64(15), step.Penalty)
	assert.Equal(t, []int64{1}, step.Released)
	// only the minute before the deadline counts
	assert.InDelta(t, 10+50*bal.Project.ProgressRate/3, step.Project.Progress, 1e-9)
}

func TestAdvanceProject_NotRunning(t *testing.T) {
	bal := testBalance()
	p := model.Project{ID: 1, Difficulty: 1, Status: model.ProjectQueued}

	step, err := AdvanceProject(p, nil, bal, epoch)
	assert.ErrorIs(t, err, ErrProjectNotRunning)
	assert.Equal(t, p, step.Project)
}

func TestFailProject(t *testing.T) {
	bal := testBalance()
	p := runningProject(1, 4, epoch)

	failed, penalty, err := FailProject(p, bal.Project)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectFailed, failed.Status)
	assert.Equal(t, int64(20), penalty)

	_, _, err = FailProject(failed, bal.Project)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestClaimReward(t *testing.T) {
	bal := testBalance()
	p := model.Project{Reward: 1000, Difficulty: 2}

	assert.Equal(t, int64(1000), ClaimReward(p, bal, Modifiers{}))
	assert.Equal(t, int64(1500), ClaimReward(p, bal, Modifiers{model.CategoryRewards: 1.5}))
	assert.Equal(t, int64(40), ProjectXP(p, bal.Project))
}
