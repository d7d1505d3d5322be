package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tycoon-engine/internal/config"
	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/notify"
	"tycoon-engine/internal/repository"
)

// Economy action errors.
var (
	ErrEmployeeCapReached = errors.New("company is at its employee limit")
	ErrInsufficientCash   = errors.New("insufficient company cash")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidName        = errors.New("invalid name: must not be empty")
	ErrCompanyExists      = errors.New("user already owns a company")
)

// EconomyService runs payroll, levels and bankruptcy, and company actions.
type EconomyService struct {
	deps   Deps
	market ModifierSource
}

// NewEconomyService creates a new EconomyService instance.
func NewEconomyService(deps Deps, market ModifierSource) *EconomyService {
	return &EconomyService{deps: deps.withDefaults(), market: market}
}

// inlineBankruptcy reports whether detection runs inside the payroll
// transaction rather than as its own job kind.
func (s *EconomyService) inlineBankruptcy() bool {
	return s.deps.Jobs.Bankruptcy <= 0
}

// TickPayroll debits one in-game day of salaries from every due company
// and refreshes its monthly revenue and costs.
func (s *EconomyService) TickPayroll(ctx context.Context) (Result, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateLedger(); err != nil {
		return Result{}, err
	}
	mods, err := s.market.Modifiers(ctx)
	if err != nil {
		return Result{}, err
	}
	now := s.deps.Clock.Now()
	interval := s.deps.Jobs.Payroll

	ids, err := s.deps.repos().Companies.ListPayrollDue(ctx, cutoff(now, interval, bal.Tick.RowSlack))
	if err != nil {
		return Result{}, fmt.Errorf("failed to list payroll due companies: %w", err)
	}

	return forEachRow(ctx, JobPayroll, s.deps.Workers, ids, func(ctx context.Context, companyID int64) error {
		return s.deps.Locks.WithLockContext(ctx, companyID, companyLockTimeout, func() error {
			var events []notify.Event
			var userID int64
			err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
				c, err := r.Companies.Get(ctx, companyID, true)
				if err != nil {
					return err
				}
				if !game.RowDue(c.LastPayrollAt, now, interval, bal.Tick.RowSlack) {
					return errSkip
				}
				userID = c.UserID
				emps, err := r.Employees.ListByCompany(ctx, companyID, false, true)
				if err != nil {
					return err
				}
				revenue, err := r.Products.SumMonthlyRevenue(ctx, companyID)
				if err != nil {
					return err
				}

				pay := game.Payroll(emps, bal, mods)
				c.Cash -= pay
				c.MonthlyCosts = game.MonthlyCosts(pay, bal.Ledger)
				c.MonthlyRevenue = revenue
				t := now
				c.LastPayrollAt = &t

				if s.inlineBankruptcy() && game.Bankrupt(*c) {
					ev, err := cascade(ctx, r, c, emps, bal, now)
					if err != nil {
						return err
					}
					events = append(events, ev)
				}
				return r.Companies.Save(ctx, c)
			})
			if err != nil {
				return err
			}
			s.deps.emit(events)
			if len(events) > 0 {
				s.deps.Dirty.Enqueue(userID)
			}
			return nil
		})
	})
}

// TickBankruptcy runs the cascade for every company with negative cash.
// It is only registered when a detection interval is configured.
func (s *EconomyService) TickBankruptcy(ctx context.Context) (Result, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateLedger(); err != nil {
		return Result{}, err
	}
	now := s.deps.Clock.Now()

	ids, err := s.deps.repos().Companies.ListInsolvent(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list insolvent companies: %w", err)
	}

	return forEachRow(ctx, JobBankruptcy, s.deps.Workers, ids, func(ctx context.Context, companyID int64) error {
		return s.deps.Locks.WithLockContext(ctx, companyID, companyLockTimeout, func() error {
			var ev notify.Event
			err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
				c, err := r.Companies.Get(ctx, companyID, true)
				if err != nil {
					return err
				}
				if !game.Bankrupt(*c) {
					return errSkip
				}
				emps, err := r.Employees.ListByCompany(ctx, companyID, false, true)
				if err != nil {
					return err
				}
				if ev, err = cascade(ctx, r, c, emps, bal, now); err != nil {
					return err
				}
				return r.Companies.Save(ctx, c)
			})
			if err != nil {
				return err
			}
			s.deps.Emitter.Emit(ev)
			s.deps.Dirty.Enqueue(ev.UserID)
			return nil
		})
	})
}

// cascade quits every employee, fails every open project, applies the
// reputation penalty and writes the audit row. c is reset in place; the
// caller saves it in the same transaction.
func cascade(ctx context.Context, r *repository.Repositories, c *model.Company, emps []model.Employee, bal *config.Balance, now time.Time) (notify.Event, error) {
	projects, err := r.Projects.ListByCompany(ctx, c.ID, []model.ProjectStatus{model.ProjectQueued, model.ProjectInProgress}, true)
	if err != nil {
		return notify.Event{}, err
	}
	plan, ok := game.PlanBankruptcy(*c, emps, projects, bal)
	if !ok {
		return notify.Event{}, errSkip
	}

	for i := range plan.Employees {
		if err := r.Employees.Save(ctx, &plan.Employees[i]); err != nil {
			return notify.Event{}, err
		}
	}
	for i := range plan.Projects {
		if err := r.Projects.Save(ctx, &plan.Projects[i]); err != nil {
			return notify.Event{}, err
		}
	}
	if plan.Penalty > 0 {
		if _, err := r.GameStates.ApplyProgress(ctx, c.UserID, repository.Progress{Reputation: -plan.Penalty}); err != nil {
			return notify.Event{}, err
		}
	}
	audit := plan.Audit(now)
	if err := r.Bankruptcies.Create(ctx, &audit); err != nil {
		return notify.Event{}, err
	}
	*c = game.ApplyBankruptcy(*c, plan)

	log.Warn().
		Int64("company_id", c.ID).
		Int64("cash_before", plan.CashBefore).
		Int("employees", plan.EmployeeCount).
		Int("projects_failed", len(plan.Projects)).
		Msg("Company went bankrupt")

	return notify.NewEvent(model.EventCompanyBankrupted, now, map[string]any{
		"cash_before":      plan.CashBefore,
		"employee_count":   plan.EmployeeCount,
		"projects_failed":  len(plan.Projects),
		"bankruptcy_count": c.BankruptcyCount,
	}).ForCompany(c.UserID, c.ID), nil
}

// TickLevels recomputes company and player levels from XP, then publishes
// the leaderboard.
func (s *EconomyService) TickLevels(ctx context.Context) (Result, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateLedger(); err != nil {
		return Result{}, err
	}
	now := s.deps.Clock.Now()

	ids, err := s.deps.repos().Companies.ListIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list companies: %w", err)
	}

	res, err := forEachRow(ctx, JobLevels, s.deps.Workers, ids, func(ctx context.Context, companyID int64) error {
		var (
			userID  int64
			changed bool
		)
		err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
			c, err := r.Companies.Get(ctx, companyID, true)
			if err != nil {
				return err
			}
			userID = c.UserID
			level, maxEmployees := game.CompanyLevelFor(c.Level, c.XP, bal.Ledger)
			if level != c.Level || maxEmployees != c.MaxEmployees {
				c.Level, c.MaxEmployees = level, maxEmployees
				if err := r.Companies.Save(ctx, c); err != nil {
					return err
				}
				changed = true
			}

			gs, err := r.GameStates.Get(ctx, c.UserID, true)
			if err != nil {
				return err
			}
			if pl := game.PlayerLevelFor(gs.Level, gs.XP, bal.Ledger); pl > gs.Level {
				if err := r.GameStates.SetLevel(ctx, c.UserID, pl); err != nil {
					return err
				}
				changed = true
			}
			if !changed {
				return errSkip
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.deps.Dirty.Enqueue(userID)
		return nil
	})
	if err != nil {
		return res, err
	}

	if err := s.publishLeaderboard(ctx, bal.Ledger.LeaderboardSize, now); err != nil {
		log.Warn().Err(err).Msg("Failed to publish leaderboard")
	}
	return res, nil
}

func (s *EconomyService) publishLeaderboard(ctx context.Context, size int, now time.Time) error {
	if size <= 0 {
		size = 10
	}
	top, err := s.deps.repos().Companies.GetTopCompanies(ctx, size)
	if err != nil {
		return err
	}
	entries := make([]map[string]any, 0, len(top))
	for i, c := range top {
		entries = append(entries, map[string]any{
			"rank":       i + 1,
			"company_id": c.ID,
			"name":       c.Name,
			"level":      c.Level,
			"xp":         c.XP,
			"cash":       c.Cash,
		})
	}
	s.deps.Emitter.Emit(notify.NewEvent(model.EventLeaderboardUpdated, now, map[string]any{
		"companies": entries,
	}))
	return nil
}

// FoundCompany creates the player's game state if needed, a company with
// the level 1 employee limit, and default automation settings.
func (s *EconomyService) FoundCompany(ctx context.Context, userID int64, name string, cash int64) (*model.Company, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateLedger(); err != nil {
		return nil, err
	}
	now := s.deps.Clock.Now()

	var c *model.Company
	err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.GameStates.Get(ctx, userID, false); errors.Is(err, repository.ErrGameStateNotFound) {
			if _, err := r.GameStates.Create(ctx, userID, 0, 0, now); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if _, err := r.Companies.GetByUserID(ctx, userID); err == nil {
			return ErrCompanyExists
		} else if !errors.Is(err, repository.ErrCompanyNotFound) {
			return err
		}

		var err error
		if c, err = r.Companies.Create(ctx, userID, name, cash, bal.Ledger.MaxEmployees[0]); err != nil {
			return err
		}
		return r.Automation.Upsert(ctx, model.DefaultAutomation(c.ID))
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int64("user_id", userID).Int64("company_id", c.ID).Str("name", name).Msg("Company founded")
	return c, nil
}

// HireEmployee hires a new idle employee of role, charging the hire cost
// under the current market and granting hire XP.
func (s *EconomyService) HireEmployee(ctx context.Context, companyID int64, role model.Role, name string) (*model.Employee, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	bal := s.deps.Balance.Balance()
	rb, err := bal.Role(string(role))
	if err != nil {
		return nil, err
	}
	mods, err := s.market.Modifiers(ctx)
	if err != nil {
		return nil, err
	}
	now := s.deps.Clock.Now()

	var (
		e      model.Employee
		userID int64
	)
	err = s.deps.inCompanyTx(ctx, companyID, func(r *repository.Repositories, c *model.Company) error {
		userID = c.UserID
		n, err := r.Employees.CountActive(ctx, companyID)
		if err != nil {
			return err
		}
		if n >= c.MaxEmployees {
			return ErrEmployeeCapReached
		}
		cost := game.HireCost(rb, mods)
		if c.Cash < cost {
			return ErrInsufficientCash
		}
		c.Cash -= cost
		c.XP += bal.Ledger.HireXP
		if err := r.Companies.Save(ctx, c); err != nil {
			return err
		}

		t := now
		e = model.Employee{
			CompanyID:    companyID,
			Name:         name,
			Role:         role,
			Productivity: rb.Productivity,
			SkillLevel:   1,
			Salary:       rb.Salary,
			Energy:       100,
			Morale:       100,
			Status:       model.EmployeeIdle,
			LastTickAt:   &t,
			HiredAt:      now,
		}
		return r.Employees.Create(ctx, &e)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("company_id", companyID).
		Int64("employee_id", e.ID).
		Str("role", string(role)).
		Msg("Employee hired")
	s.deps.Dirty.Enqueue(userID)
	return &e, nil
}

// SetAutomation replaces a company's automation toggles.
func (s *EconomyService) SetAutomation(ctx context.Context, settings model.AutomationSettings) error {
	return s.deps.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Companies.Get(ctx, settings.CompanyID, false); err != nil {
			return err
		}
		return r.Automation.Upsert(ctx, settings)
	})
}
