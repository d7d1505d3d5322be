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

// Project action errors.
var (
	ErrProjectNotCompleted = errors.New("project is not completed")
	ErrAlreadyClaimed      = errors.New("project reward already claimed")
	ErrEmployeeBusy        = errors.New("employee is not idle")
	ErrWrongCompany        = errors.New("employee and project belong to different companies")
	ErrInvalidReward       = errors.New("invalid reward: must not be negative")
)

// companyLockTimeout bounds how long a job or action waits for another
// holder of the same company in this process.
const companyLockTimeout = 10 * time.Second

// progressMilestone is the step, in percent, between project.progress events.
const progressMilestone = 25

// ModifierSource returns the market modifiers in force now.
type ModifierSource interface {
	Modifiers(ctx context.Context) (game.Modifiers, error)
}

// ProjectService advances in-progress projects and runs project actions.
type ProjectService struct {
	deps   Deps
	market ModifierSource
}

// NewProjectService creates a new ProjectService instance.
func NewProjectService(deps Deps, market ModifierSource) *ProjectService {
	return &ProjectService{deps: deps.withDefaults(), market: market}
}

// Tick advances every company that has a due in-progress project. Each
// company is one transaction covering its projects and their assignees.
func (s *ProjectService) Tick(ctx context.Context) (Result, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateProject(); err != nil {
		return Result{}, err
	}
	now := s.deps.Clock.Now()
	interval := s.deps.Jobs.Projects

	ids, err := s.deps.repos().Projects.ListDueCompanies(ctx, cutoff(now, interval, bal.Tick.RowSlack))
	if err != nil {
		return Result{}, fmt.Errorf("failed to list due projects: %w", err)
	}

	return forEachRow(ctx, JobProjects, s.deps.Workers, ids, func(ctx context.Context, companyID int64) error {
		return s.deps.Locks.WithLockContext(ctx, companyID, companyLockTimeout, func() error {
			return s.tickCompany(ctx, companyID, bal, now, interval)
		})
	})
}

func (s *ProjectService) tickCompany(ctx context.Context, companyID int64, bal *config.Balance, now time.Time, interval time.Duration) error {
	var (
		events  []notify.Event
		userID  int64
		changed bool
	)
	err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
		// company, then employees, then projects: the order inCompanyTx
		// callers use.
		c, err := r.Companies.Get(ctx, companyID, true)
		if err != nil {
			return err
		}
		userID = c.UserID
		emps, err := r.Employees.ListByCompany(ctx, companyID, false, true)
		if err != nil {
			return err
		}
		projects, err := r.Projects.ListByCompany(ctx, companyID, []model.ProjectStatus{model.ProjectInProgress}, true)
		if err != nil {
			return err
		}
		auto, err := r.Automation.Get(ctx, companyID)
		if err != nil {
			return err
		}

		staff := make(map[int64]*model.Employee, len(emps))
		for i := range emps {
			staff[emps[i].ID] = &emps[i]
		}

		advanced := 0
		for i := range projects {
			p := &projects[i]
			if !game.RowDue(p.LastProgressAt, now, interval, bal.Tick.RowSlack) {
				continue
			}
			step, err := game.AdvanceProject(*p, teamOf(emps, p.ID), bal, now)
			if err != nil {
				return err
			}
			*p = step.Project
			if err := r.Projects.Save(ctx, p); err != nil {
				return err
			}
			advanced++

			for _, id := range step.Released {
				e, ok := staff[id]
				if !ok {
					continue
				}
				*e = game.Release(*e)
				if err := r.Employees.Save(ctx, e); err != nil {
					return err
				}
			}

			switch {
			case step.Completed():
				changed = true
				events = append(events, notify.NewEvent(model.EventProjectCompleted, now, map[string]any{
					"project_id": p.ID,
					"name":       p.Name,
					"reward":     p.Reward,
				}).ForCompany(c.UserID, c.ID))
			case step.Failed():
				changed = true
				if _, err := r.GameStates.ApplyProgress(ctx, c.UserID, repository.Progress{Reputation: -step.Penalty}); err != nil {
					return err
				}
				events = append(events, notify.NewEvent(model.EventProjectFailed, now, map[string]any{
					"project_id": p.ID,
					"name":       p.Name,
					"penalty":    step.Penalty,
				}).ForCompany(c.UserID, c.ID))
			case crossedMilestone(p.Progress-step.Delta, p.Progress):
				events = append(events, notify.NewEvent(model.EventProjectProgress, now, map[string]any{
					"project_id": p.ID,
					"name":       p.Name,
					"progress":   p.Progress,
				}).ForCompany(c.UserID, c.ID))
			}
		}
		if advanced == 0 {
			return errSkip
		}

		if auto.AutoAssign {
			if err := autoAssign(ctx, r, projects, emps, bal.Employee); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.deps.emit(events)
	if changed {
		s.deps.Dirty.Enqueue(userID)
	}
	return nil
}

// teamOf returns the employees assigned to projectID.
func teamOf(emps []model.Employee, projectID int64) []model.Employee {
	var team []model.Employee
	for _, e := range emps {
		if e.ProjectID != nil && *e.ProjectID == projectID {
			team = append(team, e)
		}
	}
	return team
}

func crossedMilestone(before, after float64) bool {
	return int(after)/progressMilestone > int(before)/progressMilestone && after < 100
}

// autoAssign gives every in-progress project without a working assignee
// one idle, rested employee, in project order.
func autoAssign(ctx context.Context, r *repository.Repositories, projects []model.Project, emps []model.Employee, b config.EmployeeBalance) error {
	next := 0
	for _, p := range projects {
		if p.Status != model.ProjectInProgress || staffed(emps, p.ID) {
			continue
		}
		for next < len(emps) && !game.Assignable(emps[next], b) {
			next++
		}
		if next == len(emps) {
			return nil
		}
		assigned, err := game.Assign(emps[next], p.ID)
		if err != nil {
			return err
		}
		emps[next] = assigned
		if err := r.Employees.Save(ctx, &emps[next]); err != nil {
			return err
		}
		log.Debug().
			Int64("employee_id", assigned.ID).
			Int64("project_id", p.ID).
			Msg("Employee auto-assigned")
		next++
	}
	return nil
}

func staffed(emps []model.Employee, projectID int64) bool {
	for _, e := range emps {
		if e.Status == model.EmployeeWorking && e.ProjectID != nil && *e.ProjectID == projectID {
			return true
		}
	}
	return false
}

// CreateProject queues a new project for a company. With auto-accept on it
// starts immediately.
func (s *ProjectService) CreateProject(ctx context.Context, companyID int64, name string, difficulty int, reward int64) (*model.Project, error) {
	if difficulty < game.MinDifficulty || difficulty > game.MaxDifficulty {
		return nil, game.ErrInvalidDifficulty
	}
	if reward < 0 {
		return nil, ErrInvalidReward
	}
	bal := s.deps.Balance.Balance()
	now := s.deps.Clock.Now()

	var p model.Project
	err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Companies.Get(ctx, companyID, false); err != nil {
			return err
		}
		auto, err := r.Automation.Get(ctx, companyID)
		if err != nil {
			return err
		}
		p = model.Project{
			CompanyID:  companyID,
			Name:       name,
			Difficulty: difficulty,
			Reward:     reward,
			Status:     model.ProjectQueued,
			CreatedAt:  now,
		}
		if auto.AutoAccept {
			if p, err = game.AcceptProject(p, bal.Project, now); err != nil {
				return err
			}
		}
		return r.Projects.Create(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AcceptProject starts a queued project.
func (s *ProjectService) AcceptProject(ctx context.Context, projectID int64) (*model.Project, error) {
	bal := s.deps.Balance.Balance()
	now := s.deps.Clock.Now()

	companyID, err := s.ownerOf(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var p model.Project
	err = s.deps.inCompanyTx(ctx, companyID, func(r *repository.Repositories, _ *model.Company) error {
		cur, err := r.Projects.Get(ctx, projectID, true)
		if err != nil {
			return err
		}
		if p, err = game.AcceptProject(*cur, bal.Project, now); err != nil {
			return err
		}
		return r.Projects.Save(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AssignEmployee puts an idle employee on an in-progress project of the
// same company.
func (s *ProjectService) AssignEmployee(ctx context.Context, employeeID, projectID int64) error {
	companyID, err := s.ownerOf(ctx, projectID)
	if err != nil {
		return err
	}
	return s.deps.inCompanyTx(ctx, companyID, func(r *repository.Repositories, _ *model.Company) error {
		e, err := r.Employees.Get(ctx, employeeID, true)
		if err != nil {
			return err
		}
		if e.CompanyID != companyID {
			return ErrWrongCompany
		}
		p, err := r.Projects.Get(ctx, projectID, true)
		if err != nil {
			return err
		}
		if p.Status != model.ProjectInProgress {
			return game.ErrProjectNotRunning
		}
		assigned, err := game.Assign(*e, p.ID)
		if err != nil {
			return ErrEmployeeBusy
		}
		return r.Employees.Save(ctx, &assigned)
	})
}

// ownerOf returns the company of a project. Ownership never changes, so
// it is read before any lock is taken.
func (s *ProjectService) ownerOf(ctx context.Context, projectID int64) (int64, error) {
	p, err := s.deps.repos().Projects.Get(ctx, projectID, false)
	if err != nil {
		return 0, err
	}
	return p.CompanyID, nil
}

// ClaimProject credits a completed project's reward, XP and completion
// count once. A second claim returns ErrAlreadyClaimed.
func (s *ProjectService) ClaimProject(ctx context.Context, projectID int64) (int64, error) {
	bal := s.deps.Balance.Balance()
	mods, err := s.market.Modifiers(ctx)
	if err != nil {
		return 0, err
	}
	now := s.deps.Clock.Now()

	companyID, err := s.ownerOf(ctx, projectID)
	if err != nil {
		return 0, err
	}
	var (
		reward int64
		userID int64
	)
	err = s.deps.inCompanyTx(ctx, companyID, func(r *repository.Repositories, c *model.Company) error {
		userID = c.UserID
		p, err := r.Projects.Get(ctx, projectID, true)
		if err != nil {
			return err
		}
		if p.Status != model.ProjectCompleted {
			return ErrProjectNotCompleted
		}
		if p.ClaimedAt != nil {
			return ErrAlreadyClaimed
		}

		reward = game.ClaimReward(*p, bal, mods)
		xp := game.ProjectXP(*p, bal.Project)
		t := now
		p.ClaimedAt = &t
		if err := r.Projects.Save(ctx, p); err != nil {
			return err
		}
		if _, err := r.GameStates.ApplyProgress(ctx, c.UserID, repository.Progress{
			Money:             reward,
			XP:                xp,
			ProjectsCompleted: 1,
		}); err != nil {
			return err
		}
		return r.Companies.AddXP(ctx, c.ID, xp)
	})
	if err != nil {
		return 0, err
	}

	log.Info().
		Int64("project_id", projectID).
		Int64("user_id", userID).
		Int64("reward", reward).
		Msg("Project reward claimed")
	s.deps.Dirty.Enqueue(userID)
	return reward, nil
}
