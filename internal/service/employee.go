package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/notify"
	"tycoon-engine/internal/repository"
)

// EmployeeService advances employee energy, morale and status.
type EmployeeService struct {
	deps Deps
}

// NewEmployeeService creates a new EmployeeService instance.
func NewEmployeeService(deps Deps) *EmployeeService {
	return &EmployeeService{deps: deps.withDefaults()}
}

// Tick advances every non-quit employee whose last tick is at least one
// interval old.
func (s *EmployeeService) Tick(ctx context.Context) (Result, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateEmployee(); err != nil {
		return Result{}, err
	}
	now := s.deps.Clock.Now()
	interval := s.deps.Jobs.Employees

	ids, err := s.deps.repos().Employees.ListDue(ctx, cutoff(now, interval, bal.Tick.RowSlack))
	if err != nil {
		return Result{}, fmt.Errorf("failed to list due employees: %w", err)
	}

	return forEachRow(ctx, JobEmployees, s.deps.Workers, ids, func(ctx context.Context, id int64) error {
		var events []notify.Event
		err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
			e, err := r.Employees.Get(ctx, id, true)
			if err != nil {
				return err
			}
			if !game.RowDue(e.LastTickAt, now, interval, bal.Tick.RowSlack) {
				return errSkip
			}
			auto, err := r.Automation.Get(ctx, e.CompanyID)
			if err != nil {
				return err
			}

			step, err := game.AdvanceEmployee(*e, auto, bal, now)
			if errors.Is(err, game.ErrEmployeeQuit) {
				return errSkip
			}
			if err != nil {
				return err
			}
			if err := r.Employees.Save(ctx, &step.Employee); err != nil {
				return err
			}

			if step.Changed() {
				log.Debug().
					Int64("employee_id", id).
					Str("from", string(step.From)).
					Str("to", string(step.Employee.Status)).
					Msg("Employee status changed")
			}
			if step.Quit() {
				c, err := r.Companies.Get(ctx, e.CompanyID, false)
				if err != nil {
					return err
				}
				events = append(events, notify.NewEvent(model.EventEmployeeQuit, now, map[string]any{
					"employee_id": e.ID,
					"name":        e.Name,
					"role":        string(e.Role),
				}).ForCompany(c.UserID, c.ID))
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.deps.emit(events)
		return nil
	})
}
