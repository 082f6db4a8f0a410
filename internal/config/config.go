// Package config loads service settings from the environment and the
// tournament rules from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sudo-init-do/dailymaze/internal/alerts"
	"github.com/sudo-init-do/dailymaze/internal/domain"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port string

	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	JWTSecret            string
	TokenTTL             time.Duration
	AdminBootstrapSecret string

	// RedisAddr enables the notification queue; empty means log-only notifications.
	RedisAddr string
	AppURL    string
	SMTP      alerts.SMTPConfig

	LogLevel  slog.Level
	LogFormat string

	RulesFile string
	MazeSeed  uint64
	Rules     domain.Rules
}

// Load reads an optional .env file, then the environment, then RULES_FILE.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv without touching .env files.
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:                 env("PORT", "8080"),
		DatabaseDriver:       strings.ToLower(env("DATABASE_DRIVER", DriverSQLite)),
		DatabaseURL:          env("DATABASE_URL", ""),
		SQLitePath:           env("SQLITE_PATH", "dailymaze.db"),
		JWTSecret:            env("JWT_SECRET", ""),
		AdminBootstrapSecret: env("ADMIN_BOOTSTRAP_SECRET", ""),
		RedisAddr:            env("REDIS_ADDR", ""),
		AppURL:               strings.TrimRight(env("APP_URL", "http://localhost:3000"), "/"),
		SMTP: alerts.SMTPConfig{
			Host:     env("SMTP_HOST", ""),
			Port:     env("SMTP_PORT", ""),
			Username: env("SMTP_USERNAME", ""),
			Password: env("SMTP_PASSWORD", ""),
			From:     env("SMTP_FROM", ""),
			ReplyTo:  env("SMTP_REPLY_TO", ""),
		},
		LogFormat: strings.ToLower(env("LOG_FORMAT", "text")),
		RulesFile: env("RULES_FILE", ""),
		Rules:     domain.DefaultRules(),
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = postgresURL(env)
		}
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("database URL required (set DATABASE_URL or DB_HOST/DB_NAME)")
		}
	case DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unknown DATABASE_DRIVER %q (want postgres or sqlite)", cfg.DatabaseDriver)
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	ttl, err := time.ParseDuration(env("TOKEN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL %q", getenv("TOKEN_TTL"))
	}
	cfg.TokenTTL = ttl

	if err := cfg.LogLevel.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q (want text or json)", cfg.LogFormat)
	}

	if raw := env("MAZE_SEED", ""); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MAZE_SEED %q", raw)
		}
		cfg.MazeSeed = seed
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile, cfg.Rules)
		if err != nil {
			return Config{}, err
		}
		cfg.Rules = rules
	}
	return cfg, nil
}

// postgresURL assembles a DSN from the DB_* variables.
func postgresURL(env func(key, def string) string) string {
	host, name := env("DB_HOST", ""), env("DB_NAME", "")
	if host == "" || name == "" {
		return ""
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		env("DB_USER", "postgres"),
		env("DB_PASSWORD", ""),
		host,
		env("DB_PORT", "5432"),
		name,
		env("DB_SSLMODE", "disable"),
	)
}
