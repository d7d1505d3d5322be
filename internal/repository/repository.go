// Package repository provides data access layer implementations.
// Every repository runs on a db.Querier, so the same methods work on the
// pool or inside a transaction obtained from db.InTx.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"tycoon-engine/internal/pkg/db"
)

// Common errors for repository operations.
var (
	ErrGameStateNotFound = errors.New("game state not found")
	ErrCompanyNotFound   = errors.New("company not found")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrBugNotFound       = errors.New("bug not found")
)

// notFound maps pgx.ErrNoRows to the repository's sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

// Repositories bundles every repository bound to one Querier.
type Repositories struct {
	GameStates   *GameStateRepository
	Companies    *CompanyRepository
	Employees    *EmployeeRepository
	Projects     *ProjectRepository
	Products     *ProductRepository
	Market       *MarketRepository
	Achievements *AchievementRepository
	Automation   *AutomationRepository
	Bankruptcies *BankruptcyRepository
	JobRuns      *JobRunRepository
}

// New binds every repository to q, typically a pgx.Tx.
func New(q db.Querier) *Repositories {
	return &Repositories{
		GameStates:   NewGameStateRepository(q),
		Companies:    NewCompanyRepository(q),
		Employees:    NewEmployeeRepository(q),
		Projects:     NewProjectRepository(q),
		Products:     NewProductRepository(q),
		Market:       NewMarketRepository(q),
		Achievements: NewAchievementRepository(q),
		Automation:   NewAutomationRepository(q),
		Bankruptcies: NewBankruptcyRepository(q),
		JobRuns:      NewJobRunRepository(q),
	}
}
