package main

import (
	"context"
	"fmt"
	"os"

	"quizly/internal/config"
	"quizly/internal/database"
	"quizly/internal/logger"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or roll back the embedded database migrations",
		SilenceUsage:  true,
	}
	f := root.PersistentFlags()
	f.String("driver", "", "Database driver (sqlite, oracle); overrides db.driver")
	f.String("db-path", "", "SQLite database path; overrides db.path")
	_ = viper.BindPFlag("db.driver", f.Lookup("driver"))
	_ = viper.BindPFlag("db.path", f.Lookup("db-path"))

	root.AddCommand(
		directionCmd("up", "Apply all pending migrations", database.Up),
		directionCmd("down", "Roll back all migrations", database.Down),
		versionCmd(),
	)
	return root
}

func directionCmd(use, short string, dir database.Direction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *sqlx.DB) error {
				return database.Migrate(ctx, db, dir)
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(_ context.Context, db *sqlx.DB) error {
				version, dirty, err := database.Version(db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	}
}

func withDB(ctx context.Context, fn func(context.Context, *sqlx.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Get().Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}
