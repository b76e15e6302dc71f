package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"spendsmart/internal/config"
	"spendsmart/internal/database"
	"spendsmart/internal/logger"
	"spendsmart/internal/services"
)

var (
	migrationsDir string
	forceSeed     bool
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the SpendSmart database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrate) error {
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migration up failed: %w", err)
			}
			logger.Get().Info("Migrations applied successfully")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [N]",
	Short: "Roll back the last N migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}
		return withMigrator(func(m *migrate.Migrate) error {
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migration down failed: %w", err)
			}
			logger.Get().Infof("Rolled back %d migration(s)", steps)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				logger.Get().Info("No migrations applied")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			logger.Get().Infof("Version: %d, Dirty: %v", version, dirty)
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed-categories",
	Short: "Insert the default category registry",
	Long: `Insert the default expense and income categories.

Nothing is written when the registry already holds categories. With --force
every default is upserted by name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dbManager, err := database.NewManager(cfg.DB, cfg.Env)
		if err != nil {
			return err
		}
		defer dbManager.Close()

		n, err := services.NewCategoryService(dbManager.DB()).EnsureDefaultCategories(cmd.Context(), forceSeed)
		if err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		logger.Get().Infof("Seeded %d categories", n)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", database.DefaultMigrationsDir, "directory holding the SQL migrations")
	seedCmd.Flags().BoolVar(&forceSeed, "force", false, "rewrite every default category")
	rootCmd.AddCommand(upCmd, downCmd, versionCmd, seedCmd)
}

func withMigrator(fn func(m *migrate.Migrate) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	m, err := database.NewMigrator(cfg.DB, migrationsDir)
	if err != nil {
		return err
	}
	defer database.CloseMigrator(m)
	return fn(m)
}

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Get().Errorf("Migration error: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}
