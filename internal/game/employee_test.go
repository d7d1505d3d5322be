package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tycoon-engine/internal/model"
)

func TestAdvanceEmployee_WorkingDrains(t *testing.T) {
	bal := testBalance()
	e := junior(1, 10, epoch)

	step, err := AdvanceEmployee(e, model.DefaultAutomation(1), bal, epoch.Add(time.Minute))
	require.NoError(t, err)

	assert.InDelta(t, 98, step.Employee.Energy, 1e-9)
	assert.InDelta(t, 99.5, step.Employee.Morale, 1e-9)
	assert.Equal(t, model.EmployeeWorking, step.Employee.Status)
	assert.False(t, step.Changed())
	assert.Equal(t, epoch.Add(time.Minute), *step.Employee.LastTickAt)
}

func TestAdvanceEmployee_ElapsedIsCapped(t *testing.T) {
	bal := testBalance()
	e := junior(1, 10, epoch)

	step, err := AdvanceEmployee(e, model.DefaultAutomation(1), bal, epoch.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, bal.Tick.MaxElapsedMinutes, step.Minutes)
	assert.InDelta(t, 100-2*bal.Tick.MaxElapsedMinutes, step.Employee.Energy, 1e-9)
}

func TestAdvanceEmployee_AutoRestUnassigns(t *testing.T) {
	bal := testBalance()
	e := junior(1, 10, epoch)
	e.Energy = 21

	step, err := AdvanceEmployee(e, model.DefaultAutomation(1), bal, epoch.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, model.EmployeeResting, step.Employee.Status)
	assert.Nil(t, step.Employee.ProjectID)
	require.NotNil(t, step.Released)
	assert.Equal(t, int64(10), *step.Released)
}

func TestAdvanceEmployee_QuitsAtZeroEnergyWithoutAutoRest(t *testing.T) {
	bal := testBalance()
	e := junior(1, 10, epoch)
	e.Energy = 3

	auto := model.DefaultAutomation(1)
	auto.AutoRest = false
	step, err := AdvanceEmployee(e, auto, bal, epoch.Add(2*time.Minute))
	require.NoError(t, err)

	assert.True(t, step.Quit())
	assert.Equal(t, 0.0, step.Employee.Energy)
	assert.Nil(t, step.Employee.ProjectID)
}

func TestAdvanceEmployee_QuitsAtZeroMorale(t *testing.T) {
	bal := testBalance()
	e := junior(1, 10, epoch)
	e.Morale = 0.5

	step, err := AdvanceEmployee(e, model.DefaultAutomation(1), bal, epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, step.Quit())
}

func TestAdvanceEmployee_RestingRecovers(t *testing.T) {
	bal := testBalance()
	e := junior(1, 0, epoch)
	e.Status = model.EmployeeResting
	e.Energy = 76
	e.Morale = 99

	step, err := AdvanceEmployee(e, model.DefaultAutomation(1), bal, epoch.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, model.EmployeeIdle, step.Employee.Status)
	assert.Equal(t, 81.0, step.Employee.Energy)
	assert.Equal(t, 100.0, step.Employee.Morale)
}

func TestAdvanceEmployee_IdleUnchanged(t *testing.T) {
	bal := testBalance()
	e := junior(1, 0, epoch)
	e.Status = model.EmployeeIdle
	e.Energy = 90

	step, err := AdvanceEmployee(e, model.DefaultAutomation(1), bal, epoch.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 90.0, step.Employee.Energy)
	assert.Equal(t, model.EmployeeIdle, step.Employee.Status)
}

func TestAdvanceEmployee_ReleasedTiredRestsBackToPool(t *testing.T) {
	bal := testBalance()
	e := Release(junior(1, 10, epoch))
	e.Energy = 40
	require.Equal(t, model.EmployeeIdle, e.Status)
	require.False(t, Assignable(e, bal.Employee))

	auto := model.DefaultAutomation(1)
	auto.AutoAssign = true
	auto.AutoRest = true

	now := epoch
	for i := 0; i < 60 && !Assignable(e, bal.Employee); i++ {
		now = now.Add(time.Minute)
		step, err := AdvanceEmployee(e, auto, bal, now)
		require.NoError(t, err)
		e = step.Employee
	}

	assert.Equal(t, model.EmployeeIdle, e.Status)
	assert.GreaterOrEqual(t, e.Energy, bal.Employee.RecoveryThreshold)
	assert.True(t, Assignable(e, bal.Employee))
}

func TestAdvanceEmployee_IdleTiredStaysIdleWithoutAutoRest(t *testing.T) {
	bal := testBalance()
	e := junior(1, 0, epoch)
	e.Status = model.EmployeeIdle
	e.Energy = 40

	auto := model.DefaultAutomation(1)
	auto.AutoRest = false
	step, err := AdvanceEmployee(e, auto, bal, epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.EmployeeIdle, step.Employee.Status)
	assert.Equal(t, 40.0, step.Employee.Energy)
}

func TestAdvanceEmployee_QuitIsNoop(t *testing.T) {
	bal := testBalance()
	e := junior(1, 0, epoch)
	e.Status = model.EmployeeQuit

	step, err := AdvanceEmployee(e, model.DefaultAutomation(1), bal, epoch.Add(time.Minute))
	assert.ErrorIs(t, err, ErrEmployeeQuit)
	assert.Equal(t, e, step.Employee)
}

func TestAdvanceEmployee_UnknownStatus(t *testing.T) {
	bal := testBalance()
	e := junior(1, 0, epoch)
	e.Status = "sleeping"

	_, err := AdvanceEmployee(e, model.DefaultAutomation(1), bal, epoch.Add(time.Minute))
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestAssign(t *testing.T) {
	e := junior(1, 0, epoch)
	e.Status = model.EmployeeIdle

	assigned, err := Assign(e, 7)
	require.NoError(t, err)
	assert.Equal(t, model.EmployeeWorking, assigned.Status)
	assert.Equal(t, int64(7), *assigned.ProjectID)

	_, err = Assign(assigned, 8)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestForceQuit(t *testing.T) {
	e := junior(1, 3, epoch)
	quit, err := ForceQuit(e)
	require.NoError(t, err)
	assert.Equal(t, model.EmployeeQuit, quit.Status)
	assert.Nil(t, quit.ProjectID)

	_, err = ForceQuit(quit)
	assert.ErrorIs(t, err, ErrEmployeeQuit)
}

func TestRowDue(t *testing.T) {
	interval := time.Minute
	assert.True(t, RowDue(nil, epoch, interval, 0.9))
	assert.False(t, RowDue(ptr(epoch), epoch.Add(50*time.Second), interval, 0.9))
	assert.True(t, RowDue(ptr(epoch), epoch.Add(55*time.Second), interval, 0.9))
}
