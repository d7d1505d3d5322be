package model

// Role is an employee capability tier. Tiers are ordered.
type Role string

const (
	RoleJunior    Role = "junior"
	RoleMid       Role = "mid"
	RoleSenior    Role = "senior"
	RoleLead      Role = "lead"
	RoleArchitect Role = "architect"
)

// Roles returns all tiers in ascending order.
func Roles() []Role {
	return []Role{RoleJunior, RoleMid, RoleSenior, RoleLead, RoleArchitect}
}

// Tier returns the 1-based rank of the role, or 0 if unknown.
func (r Role) Tier() int {
	for i, role := range Roles() {
		if role == r {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether r is a known tier.
func (r Role) Valid() bool {
	return r.Tier() > 0
}

// RequirementType is the stat an achievement is scored against.
type RequirementType string

const (
	RequireMoney             RequirementType = "money"
	RequireLevel             RequirementType = "level"
	RequireProjectsCompleted RequirementType = "projects_completed"
	RequireEmployeesHired    RequirementType = "employees_hired"
	RequireReputation        RequirementType = "reputation"
	RequirePrestigeLevel     RequirementType = "prestige_level"
)

// UserStats is the aggregated view an achievement is evaluated on.
type UserStats struct {
	UserID            int64
	Money             int64
	Level             int
	ProjectsCompleted int64
	EmployeesHired    int64
	Reputation        int64
	PrestigeLevel     int
}

// Value returns the stat matching the requirement type.
func (s UserStats) Value(req RequirementType) (int64, bool) {
	switch req {
	case RequireMoney:
		return s.Money, true
	case RequireLevel:
		return int64(s.Level), true
	case RequireProjectsCompleted:
		return s.ProjectsCompleted, true
	case RequireEmployeesHired:
		return s.EmployeesHired, true
	case RequireReputation:
		return s.Reputation, true
	case RequirePrestigeLevel:
		return int64(s.PrestigeLevel), true
	}
	return 0, false
}

// Notification event kinds.
const (
	EventCompanyBankrupted   = "company.bankrupted"
	EventProjectProgress     = "project.progress"
	EventProjectCompleted    = "project.completed"
	EventProjectFailed       = "project.failed"
	EventEmployeeQuit        = "employee.quit"
	EventAchievementUnlocked = "achievement.unlocked"
	EventLeaderboardUpdated  = "leaderboard.updated"
	EventMarketEvent         = "market.event"
	EventProductBug          = "product.bug"
)

// Market modifier categories.
const (
	CategoryRevenue  = "revenue"
	CategoryCosts    = "costs"
	CategorySalary   = "salary"
	CategoryHireCost = "hire_cost"
	CategoryRewards  = "rewards"
)
