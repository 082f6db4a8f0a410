package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sudo-init-do/dailymaze/internal/app"
	"github.com/sudo-init-do/dailymaze/internal/config"
	"github.com/sudo-init-do/dailymaze/internal/maze"
)

var timeNow = time.Now

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(mazeCmd)

	settleCmd.Flags().String("day", "", "Day to settle, YYYY-MM-DD (default yesterday)")
	mazeCmd.Flags().String("day", "", "Day to show, YYYY-MM-DD (default today)")
	promoteCmd.Flags().String("username", "", "Account to promote")
	_ = promoteCmd.MarkFlagRequired("username")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		st, err := app.OpenStore(cmd.Context(), cfg, cfg.Logger(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		st.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.DatabaseDriver)
		return nil
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settle one finished day",
	Long:  `Pay the fastest completion of a finished day. Settling an already settled day is a no-op.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			day, err := dayFlag(cmd, a.Config.Rules, -1)
			if err != nil {
				return err
			}
			res, err := a.Scheduler.Settle(ctx, day)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Settle every finished day that is still open",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			results, err := a.Scheduler.Recover(ctx)
			if perr := printJSON(cmd, results); perr != nil {
				return perr
			}
			return err
		})
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant the admin role to an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		username, _ := cmd.Flags().GetString("username")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Auth.PromoteAdmin(ctx, username); err != nil {
				return fmt.Errorf("promote %s: %w", username, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin; existing tokens keep their old role until they expire\n", username)
			return nil
		})
	},
}

var mazeCmd = &cobra.Command{
	Use:   "maze",
	Short: "Print a day's maze, creating it if needed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			day, err := dayFlag(cmd, a.Config.Rules, 0)
			if err != nil {
				return err
			}
			m, err := a.Issuer.GetOrCreate(ctx, day)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %dx%d  pool $%s  settled=%t  shortest path %d\n",
				m.Day, m.Width, m.Height, m.PrizePool.StringFixed(2), m.Settled, maze.ShortestPath(m.Layout))
			fmt.Fprint(out, maze.Render(m.Layout))
			return nil
		})
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
