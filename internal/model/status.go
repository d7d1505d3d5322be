package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change is not in the
// entity's transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// EmployeeStatus is the employee state machine.
type EmployeeStatus string

const (
	EmployeeWorking EmployeeStatus = "working"
	EmployeeIdle    EmployeeStatus = "idle"
	EmployeeResting EmployeeStatus = "resting"
	EmployeeQuit    EmployeeStatus = "quit" // terminal
)

var employeeTransitions = map[EmployeeStatus][]EmployeeStatus{
	EmployeeIdle:    {EmployeeWorking, EmployeeResting, EmployeeQuit},
	EmployeeWorking: {EmployeeIdle, EmployeeResting, EmployeeQuit},
	EmployeeResting: {EmployeeIdle, EmployeeQuit},
	EmployeeQuit:    nil,
}

// ProjectStatus is the project state machine.
type ProjectStatus string

const (
	ProjectQueued     ProjectStatus = "queued"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectFailed     ProjectStatus = "failed"
)

var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectQueued:     {ProjectInProgress, ProjectFailed},
	ProjectInProgress: {ProjectCompleted, ProjectFailed},
	ProjectCompleted:  nil,
	ProjectFailed:     nil,
}

// ProductStatus is the product lifecycle.
type ProductStatus string

const (
	ProductActive  ProductStatus = "active"
	ProductPaused  ProductStatus = "paused"
	ProductRetired ProductStatus = "retired"
)

var productTransitions = map[ProductStatus][]ProductStatus{
	ProductActive:  {ProductPaused, ProductRetired},
	ProductPaused:  {ProductActive, ProductRetired},
	ProductRetired: nil,
}

// BugStatus is the bug fix lifecycle.
type BugStatus string

const (
	BugOpen   BugStatus = "open"
	BugFixing BugStatus = "fixing"
	BugFixed  BugStatus = "fixed"
)

var bugTransitions = map[BugStatus][]BugStatus{
	BugOpen:   {BugFixing},
	BugFixing: {BugFixed, BugOpen},
	BugFixed:  nil,
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError[S ~string](kind string, from, to S) error {
	return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, kind, from, to)
}

// Valid reports whether s is a known employee status.
func (s EmployeeStatus) Valid() bool {
	_, ok := employeeTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s EmployeeStatus) Terminal() bool {
	return s == EmployeeQuit
}

// CanTransition reports whether s -> to is allowed.
func (s EmployeeStatus) CanTransition(to EmployeeStatus) bool {
	return allowed(employeeTransitions, s, to)
}

// Transition returns to, or ErrInvalidTransition.
func (s EmployeeStatus) Transition(to EmployeeStatus) (EmployeeStatus, error) {
	if !s.CanTransition(to) {
		return s, transitionError("employee", s, to)
	}
	return to, nil
}

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	_, ok := projectTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s ProjectStatus) Terminal() bool {
	return len(projectTransitions[s]) == 0
}

// Open reports whether the project is still queued or running.
func (s ProjectStatus) Open() bool {
	return s == ProjectQueued || s == ProjectInProgress
}

// CanTransition reports whether s -> to is allowed.
func (s ProjectStatus) CanTransition(to ProjectStatus) bool {
	return allowed(projectTransitions, s, to)
}

// Transition returns to, or ErrInvalidTransition.
func (s ProjectStatus) Transition(to ProjectStatus) (ProjectStatus, error) {
	if !s.CanTransition(to) {
		return s, transitionError("project", s, to)
	}
	return to, nil
}

// Valid reports whether s is a known product status.
func (s ProductStatus) Valid() bool {
	_, ok := productTransitions[s]
	return ok
}

// CanTransition reports whether s -> to is allowed.
func (s ProductStatus) CanTransition(to ProductStatus) bool {
	return allowed(productTransitions, s, to)
}

// Transition returns to, or ErrInvalidTransition.
func (s ProductStatus) Transition(to ProductStatus) (ProductStatus, error) {
	if !s.CanTransition(to) {
		return s, transitionError("product", s, to)
	}
	return to, nil
}

// Valid reports whether s is a known bug status.
func (s BugStatus) Valid() bool {
	_, ok := bugTransitions[s]
	return ok
}

// Degrading reports whether a bug in this status still costs revenue.
func (s BugStatus) Degrading() bool {
	return s != BugFixed
}

// CanTransition reports whether s -> to is allowed.
func (s BugStatus) CanTransition(to BugStatus) bool {
	return allowed(bugTransitions, s, to)
}

// Transition returns to, or ErrInvalidTransition.
func (s BugStatus) Transition(to BugStatus) (BugStatus, error) {
	if !s.CanTransition(to) {
		return s, transitionError("bug", s, to)
	}
	return to, nil
}
