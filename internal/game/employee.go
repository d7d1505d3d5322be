package game

import (
	"time"

	"tycoon-engine/internal/config"
	"tycoon-engine/internal/model"
)

// EmployeeStep is the outcome of advancing one employee by one tick.
type EmployeeStep struct {
	Employee model.Employee
	From     model.EmployeeStatus
	Minutes  float64
	// Released is the project this employee was unassigned from, if any.
	// It goes back to the pool auto-assign draws from.
	Released *int64
}

// Changed reports whether the status moved.
func (s EmployeeStep) Changed() bool {
	return s.From != s.Employee.Status
}

// Quit reports whether this step made the employee quit.
func (s EmployeeStep) Quit() bool {
	return s.Changed() && s.Employee.Status == model.EmployeeQuit
}

// AdvanceEmployee applies energy and morale change for the minutes elapsed
// since the employee's last tick, then any resulting transition.
//
//	working: drain; morale 0 or energy 0 -> quit; auto-rest and energy
//	         below the rest threshold -> resting; no project -> idle
//	resting: regenerate; energy at the recovery threshold -> idle
//	idle:    morale 0 -> quit; auto-rest and energy below the recovery
//	         threshold -> resting; otherwise unchanged
//	quit:    ErrEmployeeQuit
//
// Elapsed time is capped at balance.tick.max_elapsed_minutes, which keeps a
// single tick from draining past the rest threshold straight to zero.
func AdvanceEmployee(e model.Employee, auto model.AutomationSettings, bal *config.Balance, now time.Time) (EmployeeStep, error) {
	b := bal.Employee
	step := EmployeeStep{From: e.Status}
	if e.Status == model.EmployeeQuit {
		step.Employee = e
		return step, ErrEmployeeQuit
	}
	if !e.Status.Valid() {
		step.Employee = e
		return step, model.ErrInvalidTransition
	}

	from := e.HiredAt
	if e.LastTickAt != nil {
		from = *e.LastTickAt
	}
	m := elapsedMinutes(from, now, bal.Tick.MaxElapsedMinutes)
	step.Minutes = m

	next := e.Status
	switch e.Status {
	case model.EmployeeWorking:
		e.Energy = clamp(e.Energy-b.EnergyDrain*m, 0, 100)
		e.Morale = clamp(e.Morale-b.MoraleDrain*m, 0, 100)
		switch {
		case e.Energy <= 0 || e.Morale <= 0:
			next = model.EmployeeQuit
		case auto.AutoRest && e.Energy < b.RestThreshold:
			next = model.EmployeeResting
		case e.ProjectID == nil:
			next = model.EmployeeIdle
		}
	case model.EmployeeResting:
		e.Energy = clamp(e.Energy+b.EnergyRegen*m, 0, 100)
		e.Morale = clamp(e.Morale+b.MoraleRegen*m, 0, 100)
		if e.Energy >= b.RecoveryThreshold {
			next = model.EmployeeIdle
		}
	case model.EmployeeIdle:
		switch {
		case e.Morale <= 0:
			next = model.EmployeeQuit
		case auto.AutoRest && e.Energy < b.RecoveryThreshold:
			// released tired; rest until assignable again
			next = model.EmployeeResting
		}
	}

	if next != e.Status {
		status, err := e.Status.Transition(next)
		if err != nil {
			step.Employee = e
			return step, err
		}
		e.Status = status
		if e.Status != model.EmployeeWorking && e.ProjectID != nil {
			step.Released = e.ProjectID
			e.ProjectID = nil
		}
	}

	t := now
	e.LastTickAt = &t
	step.Employee = e
	return step, nil
}

// ForceQuit moves any non-quit employee to quit and unassigns it.
func ForceQuit(e model.Employee) (model.Employee, error) {
	status, err := e.Status.Transition(model.EmployeeQuit)
	if err != nil {
		if e.Status == model.EmployeeQuit {
			return e, ErrEmployeeQuit
		}
		return e, err
	}
	e.Status = status
	e.ProjectID = nil
	return e, nil
}

// Release sends an assigned employee back to idle after its project ended.
func Release(e model.Employee) model.Employee {
	e.ProjectID = nil
	if e.Status == model.EmployeeWorking {
		e.Status = model.EmployeeIdle
	}
	return e
}

// Assign puts an idle employee to work on projectID.
func Assign(e model.Employee, projectID int64) (model.Employee, error) {
	if e.Status != model.EmployeeIdle {
		return e, model.ErrInvalidTransition
	}
	status, err := e.Status.Transition(model.EmployeeWorking)
	if err != nil {
		return e, err
	}
	e.Status = status
	id := projectID
	e.ProjectID = &id
	return e, nil
}

// Assignable reports whether auto-assign may pick e.
func Assignable(e model.Employee, b config.EmployeeBalance) bool {
	return e.Status == model.EmployeeIdle && e.Energy >= b.RecoveryThreshold && e.Morale > 0
}
