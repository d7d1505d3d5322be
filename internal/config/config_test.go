package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, time.Minute, cfg.Scheduler.TickEvery)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Jobs.Payroll)
	assert.Zero(t, cfg.Scheduler.Jobs.Bankruptcy)
	assert.Equal(t, 256, cfg.Notify.Buffer)
	assert.Equal(t, 1, cfg.Balance.Version)
	assert.Len(t, cfg.Balance.Roles, 5)
	assert.Equal(t, 2*time.Hour, cfg.Balance.Market.Duration)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
database:
  host: db.internal
scheduler:
  jobs:
    bankruptcy: 10m
balance:
  version: 7
  roles:
    junior:
      salary: 150
`)
	t.Setenv("DATABASE_PORT", "6543")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.Jobs.Bankruptcy)
	assert.Equal(t, 7, cfg.Balance.Version)
	assert.Equal(t, int64(150), cfg.Balance.Roles["junior"].Salary)
	// keys the file leaves out keep their defaults
	assert.Equal(t, int64(1000), cfg.Balance.Roles["junior"].HireCost)
	assert.Equal(t, "postgres://tycoon:@db.internal:6543/tycoon?sslmode=disable", cfg.Database.DSN())
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "database: [unterminated")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestDefaultBalance_IsComplete(t *testing.T) {
	b := DefaultBalance()
	assert.NoError(t, b.ValidateTick())
	assert.NoError(t, b.ValidateEmployee())
	assert.NoError(t, b.ValidateProject())
	assert.NoError(t, b.ValidateIncome())
	assert.NoError(t, b.ValidateLedger())
	assert.NoError(t, b.ValidateProduct())
	assert.NoError(t, b.ValidateMarket())

	r, err := b.Role("senior")
	require.NoError(t, err)
	assert.Equal(t, int64(450), r.Salary)
}

func TestBalance_MissingConstants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Balance)
		check  func(b *Balance) error
	}{
		{"row slack", func(b *Balance) { b.Tick.RowSlack = 0 }, (*Balance).ValidateTick},
		{"energy drain", func(b *Balance) { b.Employee.EnergyDrain = 0 }, (*Balance).ValidateEmployee},
		{"recovery below rest", func(b *Balance) { b.Employee.RecoveryThreshold = 10 }, (*Balance).ValidateEmployee},
		{"progress rate", func(b *Balance) { b.Project.ProgressRate = 0 }, (*Balance).ValidateProject},
		{"offline cap", func(b *Balance) { b.Income.OfflineMaxHours = 0 }, (*Balance).ValidateIncome},
		{"level tables differ", func(b *Balance) { b.Ledger.MaxEmployees = b.Ledger.MaxEmployees[:2] }, (*Balance).ValidateLedger},
		{"days per month", func(b *Balance) { b.Ledger.DaysPerMonth = 0 }, (*Balance).ValidateLedger},
		{"severity range", func(b *Balance) { b.Product.MaxSeverity = 0 }, (*Balance).ValidateProduct},
		{"market categories", func(b *Balance) { b.Market.Categories = nil }, (*Balance).ValidateMarket},
		{"event chance", func(b *Balance) { b.Market.EventChance = 1.5 }, (*Balance).ValidateMarket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBalance()
			tt.mutate(b)
			assert.ErrorIs(t, tt.check(b), ErrMissingConstant)
		})
	}

	_, err := DefaultBalance().Role("intern")
	assert.ErrorIs(t, err, ErrMissingConstant)
}

func TestBalanceSource_StoreIgnoresNil(t *testing.T) {
	first := DefaultBalance()
	src := NewBalanceSource(first)
	src.Store(nil)
	assert.Same(t, first, src.Balance())

	next := DefaultBalance()
	next.Version = 2
	src.Store(next)
	assert.Equal(t, 2, src.Balance().Version)
}

func TestWatch_ReloadsBalance(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "balance:\n  version: 1\n")

	v, cfg, err := LoadWatched(dir)
	require.NoError(t, err)
	src := NewBalanceSource(&cfg.Balance)
	Watch(v, src)

	writeConfig(t, dir, "balance:\n  version: 2\n  salary_multiplier: 1.5\n")

	require.Eventually(t, func() bool {
		return src.Balance().Version == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.InDelta(t, 1.5, src.Balance().SalaryMultiplier, 1e-9)
}
