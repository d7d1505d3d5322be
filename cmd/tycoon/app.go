package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"tycoon-engine/internal/config"
	"tycoon-engine/internal/game"
	"tycoon-engine/internal/notify"
	"tycoon-engine/internal/pkg/clock"
	"tycoon-engine/internal/pkg/db"
	"tycoon-engine/internal/pkg/lock"
	"tycoon-engine/internal/repository"
	"tycoon-engine/internal/scheduler"
	"tycoon-engine/internal/service"
)

// app is the wired engine shared by every command.
type app struct {
	cfg     *config.Config
	viper   *viper.Viper
	pool    *db.Pool
	balance *config.BalanceSource

	hub      *notify.Hub
	telegram *notify.Telegram

	market       *service.MarketService
	achievements *service.AchievementService
	employees    *service.EmployeeService
	projects     *service.ProjectService
	income       *service.IncomeService
	economy      *service.EconomyService
	products     *service.ProductService

	registry    *scheduler.Registry
	coordinator *scheduler.Coordinator
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	v, cfg, err := config.LoadWatched(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogging(cfg.Log)
	log.Info().Int("balance_version", cfg.Balance.Version).Msg("Configuration loaded successfully")

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		viper:   v,
		pool:    pool,
		balance: config.NewBalanceSource(&cfg.Balance),
		hub:     notify.NewHub(cfg.Notify.Buffer),
	}

	emitters := notify.Multi{notify.Log{}, a.hub}
	if cfg.Notify.TelegramToken != "" {
		bot, err := notify.NewTelegramBot(cfg.Notify.TelegramToken)
		if err != nil {
			pool.Close()
			return nil, err
		}
		a.telegram = notify.NewTelegram(bot, cfg.Notify.TelegramChat, cfg.Notify.Buffer)
		emitters = append(emitters, a.telegram)
	}

	catalog, err := game.DefaultCatalog()
	if err != nil {
		pool.Close()
		return nil, err
	}

	deps := service.Deps{
		DB:      pool,
		Clock:   clock.Real{},
		Balance: a.balance,
		Jobs:    cfg.Scheduler.Jobs,
		Emitter: emitters,
		Locks:   lock.NewKeyLock(),
		Rand:    game.NewLockedRand(time.Now().UnixNano()),
		Workers: cfg.Scheduler.RowWorkers,
	}
	a.achievements = service.NewAchievementService(deps, catalog)
	deps.Dirty = a.achievements

	a.market = service.NewMarketService(deps)
	a.employees = service.NewEmployeeService(deps)
	a.projects = service.NewProjectService(deps, a.market)
	a.income = service.NewIncomeService(deps)
	a.economy = service.NewEconomyService(deps, a.market)
	a.products = service.NewProductService(deps, a.market)

	a.registry = scheduler.NewRegistry()
	if err := a.registerJobs(cfg.Scheduler.Jobs); err != nil {
		pool.Close()
		return nil, err
	}

	gate := scheduler.NewGate(repository.NewJobRunRepository(pool), clock.Real{})
	a.coordinator = scheduler.NewCoordinator(gate, a.registry, clock.Real{}, scheduler.Options{
		Every:   cfg.Scheduler.TickEvery,
		Timeout: cfg.Scheduler.RunTimeout,
	})
	return a, nil
}

// registerJobs registers every job kind with a positive interval. The
// bankruptcy kind is left out when detection runs inline with payroll.
func (a *app) registerJobs(jobs config.JobIntervals) error {
	all := []scheduler.Job{
		{Kind: service.JobEmployees, Interval: jobs.Employees, Run: scheduler.Discard(a.employees.Tick)},
		{Kind: service.JobProjects, Interval: jobs.Projects, Run: scheduler.Discard(a.projects.Tick)},
		{Kind: service.JobIdleIncome, Interval: jobs.IdleIncome, Run: scheduler.Discard(a.income.Tick)},
		{Kind: service.JobProductRevenue, Interval: jobs.ProductRevenue, Run: scheduler.Discard(a.products.TickRevenue)},
		{Kind: service.JobProductBugs, Interval: jobs.ProductBugs, Run: scheduler.Discard(a.products.TickBugs)},
		{Kind: service.JobMarketEvents, Interval: jobs.MarketEvents, Run: scheduler.Discard(a.market.Tick)},
		{Kind: service.JobPayroll, Interval: jobs.Payroll, Run: scheduler.Discard(a.economy.TickPayroll)},
		{Kind: service.JobLevels, Interval: jobs.Levels, Run: scheduler.Discard(a.economy.TickLevels)},
		{Kind: service.JobBankruptcy, Interval: jobs.Bankruptcy, Run: scheduler.Discard(a.economy.TickBankruptcy)},
		{Kind: service.JobAchievements, Interval: jobs.Achievements, Run: scheduler.Discard(a.achievements.Tick)},
		{Kind: service.JobAchievementsSweep, Interval: jobs.AchievementsSweep, Run: scheduler.Discard(a.achievements.Sweep)},
	}
	for _, j := range all {
		if j.Interval <= 0 {
			log.Info().Str("job", j.Kind).Msg("Job disabled")
			continue
		}
		if err := a.registry.Register(j); err != nil {
			return fmt.Errorf("failed to register %s: %w", j.Kind, err)
		}
	}
	log.Info().
		Int("job_count", a.registry.Count()).
		Strs("jobs", a.registry.Kinds()).
		Msg("Jobs registered")
	return nil
}

func (a *app) migrate(ctx context.Context) error {
	catalog, err := game.DefaultCatalog()
	if err != nil {
		return err
	}
	return db.Migrate(ctx, a.pool, catalog)
}

func (a *app) close() {
	a.pool.Close()
}
