package game

import (
	"time"

	"tycoon-engine/internal/config"
	"tycoon-engine/internal/model"
)

var epoch = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// scriptedRand replays fixed draws, then repeats the last one.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	if len(s.floats) > 1 {
		s.floats = s.floats[1:]
	}
	return v
}

func (s *scriptedRand) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	if len(s.ints) > 1 {
		s.ints = s.ints[1:]
	}
	return v % n
}

func testBalance() *config.Balance {
	return config.DefaultBalance()
}

func ptr[T any](v T) *T {
	return &v
}

func junior(id, projectID int64, last time.Time) model.Employee {
	e := model.Employee{
		ID:           id,
		CompanyID:    1,
		Name:         "dev",
		Role:         model.RoleJunior,
		Productivity: 50,
		SkillLevel:   1,
		Salary:       100,
		Energy:       100,
		Morale:       100,
		Status:       model.EmployeeWorking,
		LastTickAt:   ptr(last),
		HiredAt:      last,
	}
	if projectID != 0 {
		e.ProjectID = ptr(projectID)
	}
	return e
}
