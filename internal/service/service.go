// Package service runs the simulation job kinds against PostgreSQL.
// Every job kind lists its due rows outside a transaction, then advances
// each row in its own transaction so one failing row never aborts the
// batch.
package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tycoon-engine/internal/config"
	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/internal/notify"
	"tycoon-engine/internal/pkg/clock"
	"tycoon-engine/internal/pkg/db"
	"tycoon-engine/internal/pkg/lock"
	"tycoon-engine/internal/repository"
)

// Job kinds. Each names one registered tick.
const (
	JobEmployees         = "employees"
	JobProjects          = "projects"
	JobIdleIncome        = "idle-income"
	JobProductRevenue    = "product-revenue"
	JobProductBugs       = "product-bugs"
	JobMarketEvents      = "market-events"
	JobPayroll           = "payroll"
	JobLevels            = "levels"
	JobBankruptcy        = "bankruptcy"
	JobAchievements      = "achievements"
	JobAchievementsSweep = "achievements-sweep"
)

// errSkip marks a row that turned out not to be due once locked.
var errSkip = errors.New("row skipped")

// Result counts what one job run did with its rows.
type Result struct {
	Rows    int
	Skipped int
	Failed  int
}

// Processed is the number of rows that were advanced and committed.
func (r Result) Processed() int {
	return r.Rows - r.Skipped - r.Failed
}

// Queue receives users whose stats changed.
type Queue interface {
	Enqueue(userID int64)
}

type nopQueue struct{}

func (nopQueue) Enqueue(int64) {}

// Deps are the collaborators shared by every service.
type Deps struct {
	DB      db.DB
	Clock   clock.Clock
	Balance *config.BalanceSource
	Jobs    config.JobIntervals
	Emitter notify.Emitter
	// Dirty is told about every user whose stats a transaction changed.
	Dirty Queue
	// Locks serializes per-company work inside this process. The row
	// locks taken by each transaction still guard across processes.
	Locks *lock.KeyLock
	// Rand drives market events and bug spawns. It must be safe for
	// concurrent use.
	Rand game.Rand
	// Workers bounds how many rows of one job run advance concurrently.
	Workers int
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Balance == nil {
		d.Balance = config.NewBalanceSource(config.DefaultBalance())
	}
	if d.Emitter == nil {
		d.Emitter = notify.Nop{}
	}
	if d.Dirty == nil {
		d.Dirty = nopQueue{}
	}
	if d.Locks == nil {
		d.Locks = lock.NewKeyLock()
	}
	if d.Rand == nil {
		d.Rand = game.NewLockedRand(time.Now().UnixNano())
	}
	if d.Workers <= 0 {
		d.Workers = 1
	}
	return d
}

// inTx runs fn with repositories bound to a fresh transaction.
func (d Deps) inTx(ctx context.Context, fn func(r *repository.Repositories) error) error {
	return db.InTx(ctx, d.DB, func(tx pgx.Tx) error {
		return fn(repository.New(tx))
	})
}

// inCompanyTx runs fn in a transaction holding companyID's in-process lock
// and its row lock. Employee and project rows are locked after it, in that
// order, by every job and action touching a company.
func (d Deps) inCompanyTx(ctx context.Context, companyID int64, fn func(r *repository.Repositories, c *model.Company) error) error {
	return d.Locks.WithLockContext(ctx, companyID, companyLockTimeout, func() error {
		return d.inTx(ctx, func(r *repository.Repositories) error {
			c, err := r.Companies.Get(ctx, companyID, true)
			if err != nil {
				return err
			}
			return fn(r, c)
		})
	})
}

// repos returns repositories bound to the pool, for reads outside a
// transaction.
func (d Deps) repos() *repository.Repositories {
	return repository.New(d.DB)
}

func (d Deps) emit(events []notify.Event) {
	for _, ev := range events {
		d.Emitter.Emit(ev)
	}
}

// cutoff is the latest watermark a row may carry and still be due.
func cutoff(now time.Time, interval time.Duration, slack float64) time.Time {
	return now.Add(-time.Duration(float64(interval) * slack))
}

// forEachRow advances ids with at most workers rows in flight. A row that
// returns errSkip is counted as skipped; any other error is logged and
// counted, and the batch continues. Only ctx cancellation stops it early.
func forEachRow(ctx context.Context, job string, workers int, ids []int64, fn func(ctx context.Context, id int64) error) (Result, error) {
	var skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := fn(gctx, id)
			switch {
			case err == nil:
			case errors.Is(err, errSkip):
				skipped.Add(1)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				failed.Add(1)
				log.Warn().Err(err).Str("job", job).Int64("row", id).Msg("Row failed, continuing batch")
			}
			return nil
		})
	}
	err := g.Wait()

	res := Result{Rows: len(ids), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	if err == nil {
		err = ctx.Err()
	}
	log.Info().
		Str("job", job).
		Int("rows", res.Rows).
		Int("processed", res.Processed()).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("Job run finished")
	return res, err
}
