// Package config loads binarypay configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/binarypay/internal/plan"
)

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("config: invalid value")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	LockBackendStore = "store"
	LockBackendRedis = "redis"
)

// Config is the full process configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Lock     LockConfig     `yaml:"lock"`
	Engine   EngineConfig   `yaml:"engine"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Plan     plan.Plan      `yaml:"plan"`
}

// DatabaseConfig selects the store. DSN is a file path for sqlite.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig: level is debug|info|warn|error, format is text|json.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig guards mutating RPCs when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LockConfig struct {
	Backend    string        `yaml:"backend"`
	RedisAddr  string        `yaml:"redis_addr"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type EngineConfig struct {
	Workers int `yaml:"workers"`
}

// ScheduleConfig defines the daily trigger.
type ScheduleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DailyAt   string `yaml:"daily_at"`
	DayOffset int    `yaml:"day_offset"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "./data/binarypay.db"},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Lock:     LockConfig{Backend: LockBackendStore, StaleAfter: 10 * time.Minute},
		Engine:   EngineConfig{Workers: 4},
		Schedule: ScheduleConfig{DailyAt: "00:15", DayOffset: -1},
		Plan:     plan.Default(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if any),
// then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)
	cfg.Server.Addr = getEnv("LISTEN_ADDR", cfg.Server.Addr)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Schedule.DailyAt = getEnv("SCHEDULE_DAILY_AT", cfg.Schedule.DailyAt)
	cfg.Engine.Workers = getEnvInt("ENGINE_WORKERS", cfg.Engine.Workers)

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Lock.RedisAddr = addr
		cfg.Lock.Backend = LockBackendRedis
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: database.driver must be sqlite or postgres, got %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required", ErrInvalidConfig)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}

	switch c.Lock.Backend {
	case LockBackendStore:
	case LockBackendRedis:
		if c.Lock.RedisAddr == "" {
			return fmt.Errorf("%w: lock.redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: lock.backend must be store or redis, got %q", ErrInvalidConfig, c.Lock.Backend)
	}
	if c.Lock.StaleAfter <= 0 {
		return fmt.Errorf("%w: lock.stale_after must be positive", ErrInvalidConfig)
	}

	if c.Engine.Workers <= 0 {
		return fmt.Errorf("%w: engine.workers must be positive, got %d", ErrInvalidConfig, c.Engine.Workers)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: auth.token_ttl must be positive", ErrInvalidConfig)
	}
	if _, err := time.Parse("15:04", c.Schedule.DailyAt); err != nil {
		return fmt.Errorf("%w: schedule.daily_at %q is not HH:MM", ErrInvalidConfig, c.Schedule.DailyAt)
	}

	return c.Plan.Validate()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
