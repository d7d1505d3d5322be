// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Balance   Balance         `mapstructure:"balance"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// SchedulerConfig holds the coordinator cadence and per job kind intervals.
type SchedulerConfig struct {
	TickEvery  time.Duration `mapstructure:"tick_every"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
	RowWorkers int           `mapstructure:"row_workers"`
	Jobs       JobIntervals  `mapstructure:"jobs"`
}

// JobIntervals holds the interval of every job kind.
// A zero Bankruptcy interval means detection runs inline with payroll.
type JobIntervals struct {
	Employees         time.Duration `mapstructure:"employees"`
	Projects          time.Duration `mapstructure:"projects"`
	IdleIncome        time.Duration `mapstructure:"idle_income"`
	ProductRevenue    time.Duration `mapstructure:"product_revenue"`
	ProductBugs       time.Duration `mapstructure:"product_bugs"`
	MarketEvents      time.Duration `mapstructure:"market_events"`
	Payroll           time.Duration `mapstructure:"payroll"`
	Levels            time.Duration `mapstructure:"levels"`
	Achievements      time.Duration `mapstructure:"achievements"`
	AchievementsSweep time.Duration `mapstructure:"achievements_sweep"`
	Bankruptcy        time.Duration `mapstructure:"bankruptcy"`
}

// NotifyConfig holds notification delivery settings.
type NotifyConfig struct {
	Buffer        int    `mapstructure:"buffer"`
	WebsocketAddr string `mapstructure:"websocket_addr"`
	TelegramToken string `mapstructure:"telegram_token"`
	TelegramChat  int64  `mapstructure:"telegram_chat"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	_, cfg, err := load(configPath)
	return cfg, err
}

// LoadWatched is Load that also returns the underlying viper instance so the
// caller can watch the file for balance changes.
func LoadWatched(configPath string) (*viper.Viper, *Config, error) {
	return load(configPath)
}

func load(configPath string) (*viper.Viper, *Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase
	// e.g., DATABASE_HOST, BALANCE_SALARY_MULTIPLIER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return v, cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tycoon")
	v.SetDefault("database.name", "tycoon")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Scheduler defaults
	v.SetDefault("scheduler.tick_every", "1m")
	v.SetDefault("scheduler.run_timeout", "50s")
	v.SetDefault("scheduler.row_workers", 8)
	v.SetDefault("scheduler.jobs.employees", "1m")
	v.SetDefault("scheduler.jobs.projects", "1m")
	v.SetDefault("scheduler.jobs.idle_income", "1m")
	v.SetDefault("scheduler.jobs.product_revenue", "5m")
	v.SetDefault("scheduler.jobs.product_bugs", "15m")
	v.SetDefault("scheduler.jobs.market_events", "15m")
	v.SetDefault("scheduler.jobs.payroll", "5m")
	v.SetDefault("scheduler.jobs.levels", "5m")
	v.SetDefault("scheduler.jobs.achievements", "1m")
	v.SetDefault("scheduler.jobs.achievements_sweep", "1h")
	v.SetDefault("scheduler.jobs.bankruptcy", "0s")

	v.SetDefault("notify.buffer", 256)

	setBalanceDefaults(v)
}

// DefaultBalance returns the built-in balance table.
func DefaultBalance() *Balance {
	v := viper.New()
	setBalanceDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// defaults are static; a decode failure is a programming error
		panic(fmt.Sprintf("config: invalid balance defaults: %v", err))
	}
	return &cfg.Balance
}
