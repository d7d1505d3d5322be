package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEmployeeStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to EmployeeStatus
		ok       bool
	}{
		{EmployeeIdle, EmployeeWorking, true},
		{EmployeeWorking, EmployeeResting, true},
		{EmployeeResting, EmployeeIdle, true},
		{EmployeeResting, EmployeeWorking, false},
		{EmployeeQuit, EmployeeIdle, false},
		{EmployeeWorking, EmployeeWorking, false},
	}
	for _, tt := range tests {
		got, err := tt.from.Transition(tt.to)
		if tt.ok {
			require.NoError(t, err, "%s -> %s", tt.from, tt.to)
			assert.Equal(t, tt.to, got)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
			assert.Equal(t, tt.from, got)
		}
	}
	assert.True(t, EmployeeQuit.Terminal())
	assert.False(t, EmployeeStatus("fired").Valid())
}

func TestProjectStatus_Transitions(t *testing.T) {
	assert.True(t, ProjectQueued.CanTransition(ProjectInProgress))
	assert.True(t, ProjectInProgress.CanTransition(ProjectCompleted))
	assert.True(t, ProjectQueued.CanTransition(ProjectFailed))
	assert.False(t, ProjectQueued.CanTransition(ProjectCompleted))
	assert.False(t, ProjectCompleted.CanTransition(ProjectFailed))

	assert.True(t, ProjectCompleted.Terminal())
	assert.True(t, ProjectFailed.Terminal())
	assert.True(t, ProjectInProgress.Open())
	assert.False(t, ProjectCompleted.Open())
}

func TestProductAndBugStatus_Transitions(t *testing.T) {
	_, err := ProductRetired.Transition(ProductActive)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	got, err := ProductPaused.Transition(ProductActive)
	require.NoError(t, err)
	assert.Equal(t, ProductActive, got)

	assert.True(t, BugFixing.Degrading())
	assert.False(t, BugFixed.Degrading())
	assert.False(t, BugOpen.CanTransition(BugFixed))
	assert.True(t, BugFixing.CanTransition(BugOpen))
}

// Terminal statuses never have an outgoing transition.
func TestTerminalStatusesAreFinalProperty(t *testing.T) {
	employees := []EmployeeStatus{EmployeeIdle, EmployeeWorking, EmployeeResting, EmployeeQuit}
	projects := []ProjectStatus{ProjectQueued, ProjectInProgress, ProjectCompleted, ProjectFailed}
	rapid.Check(t, func(t *rapid.T) {
		e := rapid.SampledFrom(employees).Draw(t, "employee")
		to := rapid.SampledFrom(employees).Draw(t, "employee_to")
		if e.Terminal() && e.CanTransition(to) {
			t.Fatalf("terminal employee status %s moved to %s", e, to)
		}

		p := rapid.SampledFrom(projects).Draw(t, "project")
		pto := rapid.SampledFrom(projects).Draw(t, "project_to")
		if p.Terminal() && p.CanTransition(pto) {
			t.Fatalf("terminal project status %s moved to %s", p, pto)
		}
	})
}

func TestRole_Tiers(t *testing.T) {
	for i, r := range Roles() {
		assert.Equal(t, i+1, r.Tier())
		assert.True(t, r.Valid())
	}
	assert.Zero(t, Role("intern").Tier())
	assert.False(t, Role("intern").Valid())
}

func TestUserStats_Value(t *testing.T) {
	s := UserStats{Money: 500, Level: 3, Reputation: 42}
	v, ok := s.Value(RequireMoney)
	require.True(t, ok)
	assert.Equal(t, int64(500), v)

	v, ok = s.Value(RequireLevel)
	require.True(t, ok)
	assert.Equal(t, int64(3), v)

	_, ok = s.Value(RequirementType("karma"))
	assert.False(t, ok)
}
