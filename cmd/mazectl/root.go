package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sudo-init-do/dailymaze/internal/app"
	"github.com/sudo-init-do/dailymaze/internal/config"
	"github.com/sudo-init-do/dailymaze/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "mazectl",
	Short: "Operate the daily maze tournament",
	Long: `mazectl talks to the same store as the server and uses the same
environment (.env, DATABASE_*, JWT_SECRET, RULES_FILE). It is meant for
operators: applying the schema, settling or recovering days, inspecting a
day's maze and granting the admin role.`,
	SilenceUsage: true,
}

// withApp loads the configuration, opens the store and hands the wired
// components to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer a.Close()
	return fn(ctx, a)
}

// dayFlag parses --day, falling back to the day offset from today.
func dayFlag(cmd *cobra.Command, rules domain.Rules, offset int) (domain.Day, error) {
	raw, _ := cmd.Flags().GetString("day")
	if raw == "" {
		return rules.Today(timeNow()).AddDays(offset), nil
	}
	return domain.ParseDay(raw)
}
