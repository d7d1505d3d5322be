package game

import (
	"math"
	"time"

	"tycoon-engine/internal/config"
	"tycoon-engine/internal/model"
)

// Payroll is one in-game day of salaries for the non-quit employees.
func Payroll(employees []model.Employee, bal *config.Balance, mods Modifiers) int64 {
	var total int64
	for _, e := range employees {
		if e.Active() {
			total += e.Salary
		}
	}
	return int64(math.Round(float64(total) * bal.SalaryMultiplier * mods.Get(model.CategorySalary)))
}

// MonthlyCosts projects a daily payroll onto a month.
func MonthlyCosts(dailyPayroll int64, b config.LedgerBalance) int64 {
	return dailyPayroll * int64(b.DaysPerMonth)
}

// LevelFor returns the 1-based level reached with xp on an ascending
// threshold table. The first threshold is the level 1 floor.
func LevelFor(xp int64, thresholds []int64) int {
	level := 1
	for i, t := range thresholds {
		if xp >= t {
			level = i + 1
		}
	}
	return level
}

// CompanyLevelFor returns the company level and employee cap for xp.
// Levels never go down.
func CompanyLevelFor(current int, xp int64, b config.LedgerBalance) (int, int) {
	level := max(current, LevelFor(xp, b.CompanyLevelXP))
	idx := min(level, len(b.MaxEmployees)) - 1
	if idx < 0 {
		return level, 0
	}
	return level, b.MaxEmployees[idx]
}

// PlayerLevelFor returns the player level for xp. Levels never go down.
func PlayerLevelFor(current int, xp int64, b config.LedgerBalance) int {
	return max(current, LevelFor(xp, b.PlayerLevelXP))
}

// HireCost is the money debited to hire one employee of role r.
func HireCost(r config.RoleBalance, mods Modifiers) int64 {
	return int64(math.Round(float64(r.HireCost) * mods.Get(model.CategoryHireCost)))
}

// Bankrupt reports whether a company's cash has gone negative.
func Bankrupt(c model.Company) bool {
	return c.Cash < 0
}

// BankruptcyPlan is the full cascade for one company, computed before any
// write so it can be applied in a single transaction.
type BankruptcyPlan struct {
	CompanyID     int64
	CashBefore    int64
	EmployeeCount int
	Employees     []model.Employee // after quitting
	Projects      []model.Project  // after failing
	Penalty       int64
	ResetCash     int64
}

// PlanBankruptcy builds the cascade for a company with negative cash.
// The second return is false when the company is solvent.
func PlanBankruptcy(c model.Company, employees []model.Employee, projects []model.Project, bal *config.Balance) (BankruptcyPlan, bool) {
	if !Bankrupt(c) {
		return BankruptcyPlan{}, false
	}
	plan := BankruptcyPlan{
		CompanyID:  c.ID,
		CashBefore: c.Cash,
		ResetCash:  bal.Ledger.BankruptcyResetCash,
	}
	for _, e := range employees {
		quit, err := ForceQuit(e)
		if err != nil {
			continue
		}
		plan.Employees = append(plan.Employees, quit)
	}
	plan.EmployeeCount = len(plan.Employees)

	for _, p := range projects {
		if !p.Status.Open() {
			continue
		}
		failed, penalty, err := FailProject(p, bal.Project)
		if err != nil {
			continue
		}
		plan.Projects = append(plan.Projects, failed)
		plan.Penalty += penalty
	}
	return plan, true
}

// ApplyBankruptcy resets the company after its cascade.
func ApplyBankruptcy(c model.Company, plan BankruptcyPlan) model.Company {
	c.Cash = plan.ResetCash
	c.BankruptcyCount++
	c.MonthlyCosts = 0
	return c
}

// Audit is the bankruptcies row for a plan.
func (p BankruptcyPlan) Audit(now time.Time) model.Bankruptcy {
	return model.Bankruptcy{
		CompanyID:      p.CompanyID,
		CashBefore:     p.CashBefore,
		EmployeeCount:  p.EmployeeCount,
		ProjectsFailed: len(p.Projects),
		CreatedAt:      now,
	}
}
