// Package model defines the data models of the tycoon simulation.
package model

import "time"

// GameState is a player's idle-economy record.
// Money may go negative; bankruptcy is handled at the Company level.
type GameState struct {
	UserID            int64     `db:"user_id"`
	Money             int64     `db:"money"`
	ClickPower        int64     `db:"click_power"`
	AutoIncome        int64     `db:"auto_income"` // per second
	XP                int64     `db:"xp"`
	Level             int       `db:"level"`
	Reputation        int64     `db:"reputation"`
	PrestigeLevel     int       `db:"prestige_level"`
	ProjectsCompleted int64     `db:"projects_completed"`
	LastActive        time.Time `db:"last_active"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// Company is owned 1:1 by a user and owns its employees, projects and products.
type Company struct {
	ID              int64      `db:"id"`
	UserID          int64      `db:"user_id"`
	Name            string     `db:"name"`
	Level           int        `db:"company_level"`
	MaxEmployees    int        `db:"max_employees"`
	Cash            int64      `db:"cash"`
	MonthlyRevenue  int64      `db:"monthly_revenue"`
	MonthlyCosts    int64      `db:"monthly_costs"`
	XP              int64      `db:"xp"`
	BankruptcyCount int        `db:"bankruptcy_count"`
	LastPayrollAt   *time.Time `db:"last_payroll_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Employee belongs to a Company. Quit employees are kept for history.
type Employee struct {
	ID           int64          `db:"id"`
	CompanyID    int64          `db:"company_id"`
	Name         string         `db:"name"`
	Role         Role           `db:"role"`
	Productivity float64        `db:"productivity"`
	SkillLevel   int            `db:"skill_level"`
	Salary       int64          `db:"salary"`
	Energy       float64        `db:"energy"`
	Morale       float64        `db:"morale"`
	Status       EmployeeStatus `db:"status"`
	ProjectID    *int64         `db:"project_id"`
	LastTickAt   *time.Time     `db:"last_tick_at"`
	HiredAt      time.Time      `db:"hired_at"`
}

// Active reports whether the employee still counts for payroll and ticks.
func (e *Employee) Active() bool {
	return e.Status != EmployeeQuit
}

// Project belongs to a Company.
type Project struct {
	ID             int64         `db:"id"`
	CompanyID      int64         `db:"company_id"`
	Name           string        `db:"name"`
	Difficulty     int           `db:"difficulty"`
	Reward         int64         `db:"reward"`
	Progress       float64       `db:"progress"`
	Status         ProjectStatus `db:"status"`
	StartedAt      *time.Time    `db:"started_at"`
	Deadline       *time.Time    `db:"deadline"`
	LastProgressAt *time.Time    `db:"last_progress_at"`
	CompletedAt    *time.Time    `db:"completed_at"`
	ClaimedAt      *time.Time    `db:"claimed_at"`
	CreatedAt      time.Time     `db:"created_at"`
}

// Product is launched from a completed Project.
type Product struct {
	ID                 int64         `db:"id"`
	CompanyID          int64         `db:"company_id"`
	ProjectID          *int64        `db:"project_id"`
	Name               string        `db:"name"`
	BaseMonthlyRevenue int64         `db:"base_monthly_revenue"`
	CurrentRevenue     float64       `db:"current_revenue"`
	Upkeep             int64         `db:"upkeep"`
	Status             ProductStatus `db:"status"`
	LastRevenueAt      *time.Time    `db:"last_revenue_at"`
	LaunchedAt         time.Time     `db:"launched_at"`
}

// ProductBug belongs to a Product; open and fixing bugs degrade revenue.
type ProductBug struct {
	ID        int64      `db:"id"`
	ProductID int64      `db:"product_id"`
	Severity  int        `db:"severity"`
	Status    BugStatus  `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
	FixedAt   *time.Time `db:"fixed_at"`
}

// MarketEvent is a global, time-boxed modifier.
type MarketEvent struct {
	ID        int64     `db:"id"`
	Category  string    `db:"category"`
	Magnitude float64   `db:"magnitude"` // multiplier is 1 + Magnitude
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
}

// ActiveAt reports whether the event applies at t (start <= t < end).
func (m *MarketEvent) ActiveAt(t time.Time) bool {
	return !t.Before(m.StartTime) && t.Before(m.EndTime)
}

// Achievement is a static catalog entry.
type Achievement struct {
	Code        string          `db:"code" yaml:"code"`
	Name        string          `db:"name" yaml:"name"`
	Description string          `db:"description" yaml:"description"`
	Requirement RequirementType `db:"requirement" yaml:"requirement"`
	Threshold   int64           `db:"threshold" yaml:"threshold"`
	Reward      int64           `db:"reward" yaml:"reward"`
}

// UserAchievement is a per-user unlock record.
type UserAchievement struct {
	UserID     int64     `db:"user_id"`
	Code       string    `db:"achievement_code"`
	UnlockedAt time.Time `db:"unlocked_at"`
	Notified   bool      `db:"notified"`
}

// AutomationSettings are per-company toggles consulted by the engines.
type AutomationSettings struct {
	CompanyID  int64 `db:"company_id"`
	AutoAssign bool  `db:"auto_assign"`
	AutoAccept bool  `db:"auto_accept"`
	AutoRest   bool  `db:"auto_rest"`
}

// DefaultAutomation is used when a company has no settings row.
func DefaultAutomation(companyID int64) AutomationSettings {
	return AutomationSettings{CompanyID: companyID, AutoRest: true}
}

// Bankruptcy is the audit record of one cascade.
type Bankruptcy struct {
	ID             int64     `db:"id"`
	CompanyID      int64     `db:"company_id"`
	CashBefore     int64     `db:"cash_before"`
	EmployeeCount  int       `db:"employee_count"`
	ProjectsFailed int       `db:"projects_failed"`
	CreatedAt      time.Time `db:"created_at"`
}
