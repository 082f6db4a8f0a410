package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sudo-init-do/dailymaze/internal/domain"
)

func getenv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(getenv(map[string]string{"JWT_SECRET": "s"}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" || cfg.DatabaseDriver != DriverSQLite || cfg.SQLitePath != "dailymaze.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %v, want 24h", cfg.TokenTTL)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "text" {
		t.Errorf("logging = %v/%s", cfg.LogLevel, cfg.LogFormat)
	}
	def := domain.DefaultRules()
	if cfg.Rules.EntryCost != def.EntryCost || cfg.Rules.PointsPerDollar != def.PointsPerDollar || !cfg.Rules.OnePlayPerDay {
		t.Errorf("rules = %+v, want defaults", cfg.Rules)
	}
	if cfg.RedisAddr != "" || cfg.SMTP.Configured() {
		t.Error("notification transport configured by default")
	}
}

func TestFromEnv_Postgres(t *testing.T) {
	cfg, err := FromEnv(getenv(map[string]string{
		"JWT_SECRET":      "s",
		"DATABASE_DRIVER": "Postgres",
		"DB_USER":         "maze",
		"DB_PASSWORD":     "pw",
		"DB_HOST":         "db",
		"DB_NAME":         "dailymaze",
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := "postgres://maze:pw@db:5432/dailymaze?sslmode=disable"
	if cfg.DatabaseURL != want {
		t.Errorf("url = %s, want %s", cfg.DatabaseURL, want)
	}

	cfg, err = FromEnv(getenv(map[string]string{
		"JWT_SECRET":      "s",
		"DATABASE_DRIVER": "postgres",
		"DATABASE_URL":    "postgres://x/y",
		"DB_HOST":         "ignored",
		"DB_NAME":         "ignored",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgres://x/y" {
		t.Errorf("url = %s, want DATABASE_URL to win", cfg.DatabaseURL)
	}
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"no secret", map[string]string{}, "JWT_SECRET"},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "DATABASE_DRIVER": "mysql"}, "DATABASE_DRIVER"},
		{"postgres without url", map[string]string{"JWT_SECRET": "s", "DATABASE_DRIVER": "postgres"}, "database URL"},
		{"bad ttl", map[string]string{"JWT_SECRET": "s", "TOKEN_TTL": "forever"}, "TOKEN_TTL"},
		{"negative ttl", map[string]string{"JWT_SECRET": "s", "TOKEN_TTL": "-1h"}, "TOKEN_TTL"},
		{"bad level", map[string]string{"JWT_SECRET": "s", "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad format", map[string]string{"JWT_SECRET": "s", "LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"bad seed", map[string]string{"JWT_SECRET": "s", "MAZE_SEED": "-3"}, "MAZE_SEED"},
		{"missing rules file", map[string]string{"JWT_SECRET": "s", "RULES_FILE": "/nonexistent/rules.toml"}, "rules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(getenv(tt.vars))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRules(t *testing.T) {
	path := writeRules(t, `
entry_cost = 500
payout_fraction = "0.9"
maze_width = 31
one_play_per_day = false
timezone = "Europe/Berlin"
standings_interval = "2s"
`)
	r, err := LoadRules(path, domain.DefaultRules())
	if err != nil {
		if strings.Contains(err.Error(), "Europe/Berlin") {
			t.Skipf("tzdata unavailable: %v", err)
		}
		t.Fatal(err)
	}

	if r.EntryCost != 500 || r.PointsPerDollar != 250 || r.MazeWidth != 31 || r.MazeHeight != 17 {
		t.Errorf("rules = %+v", r)
	}
	if r.PayoutFraction.String() != "0.9" || r.OnePlayPerDay || r.StandingsInterval != 2*time.Second {
		t.Errorf("rules = %+v", r)
	}
	if r.Loc().String() != "Europe/Berlin" {
		t.Errorf("location = %s", r.Loc())
	}
	if got := r.EntryCostUSD().StringFixed(2); got != "2.00" {
		t.Errorf("entry cost = %s USD, want 2.00", got)
	}
}

func TestLoadRules_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", `entry_fee = 3`, "unknown keys entry_fee"},
		{"zero entry", `entry_cost = 0`, "entry_cost"},
		{"payout above one", `payout_fraction = "1.5"`, "payout_fraction"},
		{"payout not decimal", `payout_fraction = "most"`, "payout_fraction"},
		{"maze too small", `maze_width = 3`, "maze_width"},
		{"maze too large", `maze_height = 1001`, "maze_height"},
		{"fractional cents", "entry_cost = 1\npoints_per_dollar = 1000", "whole number of cents"},
		{"bad zone", `timezone = "Mars/Olympus"`, "timezone"},
		{"fast feed", `standings_interval = "1ms"`, "standings_interval"},
		{"not toml", `entry_cost = = 1`, "read rules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.body), domain.DefaultRules())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	cfg := Config{LogLevel: slog.LevelWarn, LogFormat: "json"}
	logger := cfg.Logger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "day", "2026-06-01")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"service":"dailymaze"`) {
		t.Errorf("output = %s", out)
	}
}
