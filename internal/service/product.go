package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/notify"
	"tycoon-engine/internal/repository"
)

// Product action errors.
var ErrAlreadyLaunched = errors.New("project already launched as a product")

// upkeepDivisor sets a launched product's monthly upkeep to a tenth of its
// base revenue.
const upkeepDivisor = 10

// ProductService credits product revenue, spawns bugs and runs product
// actions.
type ProductService struct {
	deps   Deps
	market ModifierSource
}

// NewProductService creates a new ProductService instance.
func NewProductService(deps Deps, market ModifierSource) *ProductService {
	return &ProductService{deps: deps.withDefaults(), market: market}
}

// TickRevenue grows every due active product and books its cash delta on
// the owning company.
func (s *ProductService) TickRevenue(ctx context.Context) (Result, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateProduct(); err != nil {
		return Result{}, err
	}
	mods, err := s.market.Modifiers(ctx)
	if err != nil {
		return Result{}, err
	}
	now := s.deps.Clock.Now()
	interval := s.deps.Jobs.ProductRevenue

	ids, err := s.deps.repos().Products.ListRevenueDue(ctx, cutoff(now, interval, bal.Tick.RowSlack))
	if err != nil {
		return Result{}, err
	}

	return forEachRow(ctx, JobProductRevenue, s.deps.Workers, ids, func(ctx context.Context, id int64) error {
		return s.deps.inTx(ctx, func(r *repository.Repositories) error {
			p, err := r.Products.Get(ctx, id, true)
			if err != nil {
				return err
			}
			if p.Status != model.ProductActive || !game.RowDue(p.LastRevenueAt, now, interval, bal.Tick.RowSlack) {
				return errSkip
			}
			bugs, err := r.Products.ListOpenBugs(ctx, id)
			if err != nil {
				return err
			}

			step := game.AdvanceProduct(*p, bugs, bal, mods)
			*p = step.Product
			t := now
			p.LastRevenueAt = &t
			if err := r.Products.Save(ctx, p); err != nil {
				return err
			}
			if step.CashDelta == 0 {
				return nil
			}
			_, err = r.Companies.AddCash(ctx, p.CompanyID, step.CashDelta)
			return err
		})
	})
}

// TickBugs rolls the bug chance once per active product.
func (s *ProductService) TickBugs(ctx context.Context) (Result, error) {
	bal := s.deps.Balance.Balance()
	if err := bal.ValidateProduct(); err != nil {
		return Result{}, err
	}
	now := s.deps.Clock.Now()

	ids, err := s.deps.repos().Products.ListActive(ctx)
	if err != nil {
		return Result{}, err
	}

	return forEachRow(ctx, JobProductBugs, s.deps.Workers, ids, func(ctx context.Context, id int64) error {
		severity, ok := game.MaybeSpawnBug(s.deps.Rand, bal.Product)
		if !ok {
			return errSkip
		}
		var ev notify.Event
		err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
			p, err := r.Products.Get(ctx, id, true)
			if err != nil {
				return err
			}
			if p.Status != model.ProductActive {
				return errSkip
			}
			c, err := r.Companies.Get(ctx, p.CompanyID, false)
			if err != nil {
				return err
			}
			bug := model.ProductBug{
				ProductID: id,
				Severity:  severity,
				Status:    model.BugOpen,
				CreatedAt: now,
			}
			if err := r.Products.CreateBug(ctx, &bug); err != nil {
				return err
			}
			ev = notify.NewEvent(model.EventProductBug, now, map[string]any{
				"product_id": p.ID,
				"product":    p.Name,
				"bug_id":     bug.ID,
				"severity":   severity,
			}).ForCompany(c.UserID, c.ID)
			return nil
		})
		if err != nil {
			return err
		}
		s.deps.Emitter.Emit(ev)
		return nil
	})
}

// LaunchProduct turns a completed project into an active product. Base
// revenue is the project reward; upkeep is a tenth of it.
func (s *ProductService) LaunchProduct(ctx context.Context, projectID int64, name string) (*model.Product, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	bal := s.deps.Balance.Balance()
	now := s.deps.Clock.Now()

	var p model.Product
	err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
		proj, err := r.Projects.Get(ctx, projectID, true)
		if err != nil {
			return err
		}
		if proj.Status != model.ProjectCompleted {
			return ErrProjectNotCompleted
		}
		id := proj.ID
		p = model.Product{
			CompanyID:          proj.CompanyID,
			ProjectID:          &id,
			Name:               name,
			BaseMonthlyRevenue: proj.Reward,
			Upkeep:             proj.Reward / upkeepDivisor,
			Status:             model.ProductActive,
			LaunchedAt:         now,
		}
		if err := r.Products.Create(ctx, &p); err != nil {
			if uniqueViolation(err) {
				return ErrAlreadyLaunched
			}
			return err
		}
		return r.Companies.AddXP(ctx, proj.CompanyID, bal.Ledger.LaunchXP)
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Int64("product_id", p.ID).
		Int64("project_id", projectID).
		Int64("base_revenue", p.BaseMonthlyRevenue).
		Msg("Product launched")
	return &p, nil
}

func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// StartBugFix moves an open bug to fixing. It keeps degrading revenue
// until CompleteBugFix.
func (s *ProductService) StartBugFix(ctx context.Context, bugID int64) error {
	return s.moveBug(ctx, bugID, model.BugFixing)
}

// CompleteBugFix marks a fixing bug as fixed.
func (s *ProductService) CompleteBugFix(ctx context.Context, bugID int64) error {
	return s.moveBug(ctx, bugID, model.BugFixed)
}

func (s *ProductService) moveBug(ctx context.Context, bugID int64, to model.BugStatus) error {
	now := s.deps.Clock.Now()
	return s.deps.inTx(ctx, func(r *repository.Repositories) error {
		b, err := r.Products.GetBug(ctx, bugID, true)
		if err != nil {
			return err
		}
		if b.Status, err = b.Status.Transition(to); err != nil {
			return err
		}
		if to == model.BugFixed {
			t := now
			b.FixedAt = &t
		}
		return r.Products.SaveBug(ctx, b)
	})
}

// SetProductStatus pauses, resumes or retires a product.
func (s *ProductService) SetProductStatus(ctx context.Context, productID int64, to model.ProductStatus) (*model.Product, error) {
	var p *model.Product
	err := s.deps.inTx(ctx, func(r *repository.Repositories) error {
		var err error
		if p, err = r.Products.Get(ctx, productID, true); err != nil {
			return err
		}
		if p.Status, err = p.Status.Transition(to); err != nil {
			return fmt.Errorf("product %d: %w", productID, err)
		}
		return r.Products.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
