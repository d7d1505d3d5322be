package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingConstant is returned when a balance constant a job kind needs
// is absent or out of range.
var ErrMissingConstant = errors.New("missing balance constant")

// Balance is the versioned table of game-balance constants.
// It is read-only to the engine; a new table replaces the old one on reload.
type Balance struct {
	Version          int                    `mapstructure:"version"`
	SalaryMultiplier float64                `mapstructure:"salary_multiplier"`
	RewardMultiplier float64                `mapstructure:"reward_multiplier"`
	Roles            map[string]RoleBalance `mapstructure:"roles"`
	Employee         EmployeeBalance        `mapstructure:"employee"`
	Project          ProjectBalance         `mapstructure:"project"`
	Income           IncomeBalance          `mapstructure:"income"`
	Ledger           LedgerBalance          `mapstructure:"ledger"`
	Product          ProductBalance         `mapstructure:"product"`
	Market           MarketBalance          `mapstructure:"market"`
	Tick             TickBalance            `mapstructure:"tick"`
}

// RoleBalance holds the fixed numbers of one employee role tier.
type RoleBalance struct {
	Productivity float64 `mapstructure:"productivity"`
	HireCost     int64   `mapstructure:"hire_cost"`
	Salary       int64   `mapstructure:"salary"`
}

// EmployeeBalance holds energy and morale rates, per minute.
type EmployeeBalance struct {
	EnergyDrain       float64 `mapstructure:"energy_drain"`
	MoraleDrain       float64 `mapstructure:"morale_drain"`
	EnergyRegen       float64 `mapstructure:"energy_regen"`
	MoraleRegen       float64 `mapstructure:"morale_regen"`
	RestThreshold     float64 `mapstructure:"rest_threshold"`
	RecoveryThreshold float64 `mapstructure:"recovery_threshold"`
}

// ProjectBalance holds progression and deadline constants.
type ProjectBalance struct {
	DeadlineHoursPerDifficulty     float64 `mapstructure:"deadline_hours_per_difficulty"`
	ReputationPenaltyPerDifficulty int64   `mapstructure:"reputation_penalty_per_difficulty"`
	ProgressRate                   float64 `mapstructure:"progress_rate"`
	DiminishingFactor              float64 `mapstructure:"diminishing_factor"`
	SkillBonus                     float64 `mapstructure:"skill_bonus"`
	XPPerDifficulty                int64   `mapstructure:"xp_per_difficulty"`
}

// IncomeBalance holds idle income constants.
type IncomeBalance struct {
	OfflineMaxHours float64 `mapstructure:"offline_max_hours"`
}

// LedgerBalance holds level tables and company economy constants.
type LedgerBalance struct {
	CompanyLevelXP      []int64 `mapstructure:"company_level_xp"`
	MaxEmployees        []int   `mapstructure:"max_employees"`
	PlayerLevelXP       []int64 `mapstructure:"player_level_xp"`
	BankruptcyResetCash int64   `mapstructure:"bankruptcy_reset_cash"`
	HireXP              int64   `mapstructure:"hire_xp"`
	LaunchXP            int64   `mapstructure:"launch_xp"`
	DaysPerMonth        int     `mapstructure:"days_per_month"`
	LeaderboardSize     int     `mapstructure:"leaderboard_size"`
}

// ProductBalance holds revenue growth, upkeep and bug constants.
type ProductBalance struct {
	GrowthRate         float64 `mapstructure:"growth_rate"`
	CapMultiplier      float64 `mapstructure:"cap_multiplier"`
	TicksPerMonth      int     `mapstructure:"ticks_per_month"`
	BugSpawnChance     float64 `mapstructure:"bug_spawn_chance"`
	MinSeverity        int     `mapstructure:"min_severity"`
	MaxSeverity        int     `mapstructure:"max_severity"`
	PenaltyPerSeverity float64 `mapstructure:"penalty_per_severity"`
	MinFactor          float64 `mapstructure:"min_factor"`
}

// MarketBalance holds market event constants.
type MarketBalance struct {
	EventChance  float64       `mapstructure:"event_chance"`
	Duration     time.Duration `mapstructure:"duration"`
	MinMagnitude float64       `mapstructure:"min_magnitude"`
	MaxMagnitude float64       `mapstructure:"max_magnitude"`
	Categories   []string      `mapstructure:"categories"`
	Retention    time.Duration `mapstructure:"retention"`
}

// TickBalance bounds per-row elapsed time handling.
type TickBalance struct {
	MaxElapsedMinutes float64 `mapstructure:"max_elapsed_minutes"`
	RowSlack          float64 `mapstructure:"row_slack"`
}

func setBalanceDefaults(v *viper.Viper) {
	v.SetDefault("balance.version", 1)
	v.SetDefault("balance.salary_multiplier", 1.0)
	v.SetDefault("balance.reward_multiplier", 1.0)

	roles := []struct {
		name         string
		productivity float64
		hireCost     int64
		salary       int64
	}{
		{"junior", 50, 1000, 100},
		{"mid", 80, 2500, 220},
		{"senior", 120, 6000, 450},
		{"lead", 160, 12000, 800},
		{"architect", 220, 25000, 1500},
	}
	for _, r := range roles {
		v.SetDefault("balance.roles."+r.name+".productivity", r.productivity)
		v.SetDefault("balance.roles."+r.name+".hire_cost", r.hireCost)
		v.SetDefault("balance.roles."+r.name+".salary", r.salary)
	}

	v.SetDefault("balance.employee.energy_drain", 2.0)
	v.SetDefault("balance.employee.morale_drain", 0.5)
	v.SetDefault("balance.employee.energy_regen", 5.0)
	v.SetDefault("balance.employee.morale_regen", 2.0)
	v.SetDefault("balance.employee.rest_threshold", 20.0)
	v.SetDefault("balance.employee.recovery_threshold", 80.0)

	v.SetDefault("balance.project.deadline_hours_per_difficulty", 4.0)
	v.SetDefault("balance.project.reputation_penalty_per_difficulty", 5)
	v.SetDefault("balance.project.progress_rate", 0.01)
	v.SetDefault("balance.project.diminishing_factor", 0.7)
	v.SetDefault("balance.project.skill_bonus", 0.1)
	v.SetDefault("balance.project.xp_per_difficulty", 20)

	v.SetDefault("balance.income.offline_max_hours", 8.0)

	v.SetDefault("balance.ledger.company_level_xp", []int64{0, 100, 300, 700, 1500, 3000, 6000, 12000, 25000, 50000})
	v.SetDefault("balance.ledger.max_employees", []int{3, 5, 8, 12, 16, 20, 25, 30, 40, 50})
	v.SetDefault("balance.ledger.player_level_xp", []int64{0, 50, 150, 400, 900, 2000, 4000, 8000, 16000, 32000})
	v.SetDefault("balance.ledger.bankruptcy_reset_cash", 0)
	v.SetDefault("balance.ledger.hire_xp", 10)
	v.SetDefault("balance.ledger.launch_xp", 50)
	v.SetDefault("balance.ledger.days_per_month", 30)
	v.SetDefault("balance.ledger.leaderboard_size", 10)

	v.SetDefault("balance.product.growth_rate", 0.02)
	v.SetDefault("balance.product.cap_multiplier", 3.0)
	v.SetDefault("balance.product.ticks_per_month", 30)
	v.SetDefault("balance.product.bug_spawn_chance", 0.05)
	v.SetDefault("balance.product.min_severity", 1)
	v.SetDefault("balance.product.max_severity", 5)
	v.SetDefault("balance.product.penalty_per_severity", 0.05)
	v.SetDefault("balance.product.min_factor", 0.1)

	v.SetDefault("balance.market.event_chance", 0.1)
	v.SetDefault("balance.market.duration", "2h")
	v.SetDefault("balance.market.min_magnitude", -0.3)
	v.SetDefault("balance.market.max_magnitude", 0.5)
	v.SetDefault("balance.market.categories", []string{"revenue", "costs", "salary", "hire_cost", "rewards"})
	v.SetDefault("balance.market.retention", "24h")

	v.SetDefault("balance.tick.max_elapsed_minutes", 5.0)
	v.SetDefault("balance.tick.row_slack", 0.9)
}

func missing(key string) error {
	return fmt.Errorf("%w: balance.%s", ErrMissingConstant, key)
}

// Role returns the constants of a role tier.
func (b *Balance) Role(name string) (RoleBalance, error) {
	r, ok := b.Roles[name]
	if !ok || r.Productivity <= 0 || r.Salary <= 0 {
		return RoleBalance{}, missing("roles." + name)
	}
	return r, nil
}

// ValidateTick checks the shared per-row constants.
func (b *Balance) ValidateTick() error {
	if b.Tick.MaxElapsedMinutes <= 0 {
		return missing("tick.max_elapsed_minutes")
	}
	if b.Tick.RowSlack <= 0 || b.Tick.RowSlack > 1 {
		return missing("tick.row_slack")
	}
	return nil
}

// ValidateEmployee checks the constants the employee job kind needs.
func (b *Balance) ValidateEmployee() error {
	e := b.Employee
	switch {
	case e.EnergyDrain <= 0:
		return missing("employee.energy_drain")
	case e.MoraleDrain <= 0:
		return missing("employee.morale_drain")
	case e.EnergyRegen <= 0:
		return missing("employee.energy_regen")
	case e.MoraleRegen <= 0:
		return missing("employee.morale_regen")
	case e.RestThreshold <= 0:
		return missing("employee.rest_threshold")
	case e.RecoveryThreshold <= e.RestThreshold || e.RecoveryThreshold > 100:
		return missing("employee.recovery_threshold")
	}
	return b.ValidateTick()
}

// ValidateProject checks the constants the project job kind needs.
func (b *Balance) ValidateProject() error {
	p := b.Project
	switch {
	case p.DeadlineHoursPerDifficulty <= 0:
		return missing("project.deadline_hours_per_difficulty")
	case p.ReputationPenaltyPerDifficulty < 0:
		return missing("project.reputation_penalty_per_difficulty")
	case p.ProgressRate <= 0:
		return missing("project.progress_rate")
	case p.DiminishingFactor <= 0 || p.DiminishingFactor > 1:
		return missing("project.diminishing_factor")
	case b.RewardMultiplier <= 0:
		return missing("reward_multiplier")
	}
	return b.ValidateTick()
}

// ValidateIncome checks the constants the idle income job kind needs.
func (b *Balance) ValidateIncome() error {
	if b.Income.OfflineMaxHours <= 0 {
		return missing("income.offline_max_hours")
	}
	return nil
}

// ValidateLedger checks the constants the payroll and level job kinds need.
func (b *Balance) ValidateLedger() error {
	l := b.Ledger
	switch {
	case b.SalaryMultiplier <= 0:
		return missing("salary_multiplier")
	case len(l.CompanyLevelXP) == 0:
		return missing("ledger.company_level_xp")
	case len(l.MaxEmployees) != len(l.CompanyLevelXP):
		return missing("ledger.max_employees")
	case len(l.PlayerLevelXP) == 0:
		return missing("ledger.player_level_xp")
	case l.BankruptcyResetCash < 0:
		return missing("ledger.bankruptcy_reset_cash")
	case l.DaysPerMonth <= 0:
		return missing("ledger.days_per_month")
	}
	return b.ValidateTick()
}

// ValidateProduct checks the constants the product job kinds need.
func (b *Balance) ValidateProduct() error {
	p := b.Product
	switch {
	case p.GrowthRate < 0:
		return missing("product.growth_rate")
	case p.CapMultiplier < 1:
		return missing("product.cap_multiplier")
	case p.TicksPerMonth <= 0:
		return missing("product.ticks_per_month")
	case p.BugSpawnChance < 0 || p.BugSpawnChance > 1:
		return missing("product.bug_spawn_chance")
	case p.MinSeverity <= 0 || p.MaxSeverity < p.MinSeverity:
		return missing("product.max_severity")
	case p.PenaltyPerSeverity < 0:
		return missing("product.penalty_per_severity")
	case p.MinFactor <= 0 || p.MinFactor > 1:
		return missing("product.min_factor")
	}
	return b.ValidateTick()
}

// ValidateMarket checks the constants the market job kind needs.
func (b *Balance) ValidateMarket() error {
	m := b.Market
	switch {
	case m.EventChance < 0 || m.EventChance > 1:
		return missing("market.event_chance")
	case m.Duration <= 0:
		return missing("market.duration")
	case m.MaxMagnitude < m.MinMagnitude || m.MinMagnitude <= -1:
		return missing("market.min_magnitude")
	case len(m.Categories) == 0:
		return missing("market.categories")
	}
	return nil
}
