package config

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	RabbitMQ  RabbitMQConfig  `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"DATABASE_DRIVER"`
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	TxIsolation     string        `mapstructure:"DATABASE_TX_ISOLATION"`
}

type RedisConfig struct {
	URL      string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"BILL_CACHE_TTL"`
}

type RabbitMQConfig struct {
	URL string `mapstructure:"RABBITMQ_URL"`
}

type SchedulerConfig struct {
	Timezone           string `mapstructure:"SCHEDULER_TIMEZONE"`
	BillGenerationCron string `mapstructure:"BILL_GENERATION_CRON"`
	AutoSuspendCron    string `mapstructure:"AUTO_SUSPEND_CRON"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	BillDueDay         int           `mapstructure:"BILL_DUE_DAY"`
	MaxConflictRetries int           `mapstructure:"MAX_CONFLICT_RETRIES"`
	TxTimeout          time.Duration `mapstructure:"TX_TIMEOUT"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":                "8080",
	"SERVER_HOST":                "0.0.0.0",
	"ENV":                        "development",
	"SERVER_READ_TIMEOUT":        "15s",
	"SERVER_WRITE_TIMEOUT":       "15s",
	"DATABASE_DRIVER":            DriverPostgres,
	"DATABASE_URL":               "",
	"DATABASE_MAX_OPEN_CONNS":    25,
	"DATABASE_MAX_IDLE_CONNS":    5,
	"DATABASE_CONN_MAX_LIFETIME": "30m",
	"DATABASE_TX_ISOLATION":      "read_committed",
	"REDIS_URL":                  "",
	"BILL_CACHE_TTL":             "5m",
	"RABBITMQ_URL":               "",
	"SCHEDULER_TIMEZONE":         "Asia/Dhaka",
	"BILL_GENERATION_CRON":       "0 5 0 1 * *",
	"AUTO_SUSPEND_CRON":          "0 30 0 * * *",
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
	"BILL_DUE_DAY":               10,
	"MAX_CONFLICT_RETRIES":       3,
	"TX_TIMEOUT":                 "5s",
	"HEALTH_CHECK_TIMEOUT":       "5s",
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q", DriverPostgres, DriverMemory)
	}

	if _, err := c.IsolationLevel(); err != nil {
		return err
	}

	if c.Business.BillDueDay < 1 || c.Business.BillDueDay > 31 {
		return fmt.Errorf("BILL_DUE_DAY must be between 1 and 31")
	}

	if c.Business.MaxConflictRetries < 0 {
		return fmt.Errorf("MAX_CONFLICT_RETRIES must not be negative")
	}

	if c.Business.TxTimeout <= 0 {
		return fmt.Errorf("TX_TIMEOUT must be greater than 0")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid timezone: %w", err)
	}

	// Validate cron expressions (with seconds field)
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Scheduler.BillGenerationCron); err != nil {
		return fmt.Errorf("BILL_GENERATION_CRON must be a valid cron spec: %w", err)
	}
	if _, err := parser.Parse(c.Scheduler.AutoSuspendCron); err != nil {
		return fmt.Errorf("AUTO_SUSPEND_CRON must be a valid cron spec: %w", err)
	}

	return nil
}

// DSN returns the Postgres connection string
func (c DatabaseConfig) DSN() string {
	return c.URL
}

// IsolationLevel maps DATABASE_TX_ISOLATION to a sql isolation level
func (c *Config) IsolationLevel() (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(c.Database.TxIsolation)) {
	case "", "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return 0, fmt.Errorf("DATABASE_TX_ISOLATION %q is not supported", c.Database.TxIsolation)
	}
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Location returns the scheduler timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
