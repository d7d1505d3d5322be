package game

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"tycoon-engine/internal/model"
)

// TestProjectProgressProperty checks that progress never decreases, never
// exceeds 100 and never accrues after the deadline.
func TestProjectProgressProperty(t *testing.T) {
	bal := testBalance()
	rapid.Check(t, func(t *rapid.T) {
		difficulty := rapid.IntRange(MinDifficulty, MaxDifficulty).Draw(t, "difficulty")
		p := runningProject(1, difficulty, epoch)

		n := rapid.IntRange(0, 5).Draw(t, "team")
		team := make([]model.Employee, 0, n)
		for i := 0; i < n; i++ {
			e := junior(int64(i+1), 1, epoch)
			e.Productivity = rapid.Float64Range(1, 300).Draw(t, "productivity")
			e.SkillLevel = rapid.IntRange(1, 10).Draw(t, "skill")
			team = append(team, e)
		}

		now := epoch
		for {
			now = now.Add(time.Duration(rapid.IntRange(1, 3600).Draw(t, "seconds")) * time.Second)
			before := p
			step, err := AdvanceProject(p, team, bal, now)
			if err != nil {
				t.Fatalf("advance: %v", err)
			}
			p = step.Project
			if p.Progress < before.Progress || p.Progress > 100 {
				t.Fatalf("progress %v -> %v", before.Progress, p.Progress)
			}
			if before.LastProgressAt.After(*p.Deadline) || before.LastProgressAt.Equal(*p.Deadline) {
				if step.Delta != 0 {
					t.Fatalf("progress accrued after deadline: %v", step.Delta)
				}
			}
			if p.Status != model.ProjectInProgress {
				if p.Status == model.ProjectFailed && !now.After(*p.Deadline) {
					t.Fatalf("failed before deadline at %v", now)
				}
				if p.Status == model.ProjectFailed && p.Progress >= 100 {
					t.Fatal("failed with full progress")
				}
				return
			}
		}
	})
}

// TestProjectRateMonotonicProperty checks that adding a worker never
// slows a project down.
func TestProjectRateMonotonicProperty(t *testing.T) {
	bal := testBalance()
	rapid.Check(t, func(t *rapid.T) {
		difficulty := rapid.IntRange(MinDifficulty, MaxDifficulty).Draw(t, "difficulty")
		var team []model.Employee
		prev := 0.0
		for i := 0; i < 6; i++ {
			e := junior(int64(i+1), 1, epoch)
			e.Productivity = rapid.Float64Range(1, 300).Draw(t, "productivity")
			team = append(team, e)
			rate := ProgressPerMinute(team, difficulty, bal.Project)
			if rate < prev {
				t.Fatalf("rate dropped from %v to %v with %d workers", prev, rate, len(team))
			}
			prev = rate
		}
	})
}
