// migrator применяет SQL-миграции authguard из ./migrations.
//
//	migrator up
//	migrator down --steps 1
//	migrator version
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pribylovaa/authguard/internal/config"
)

var (
	dbURL         string
	configPath    string
	migrationsURL string
	downSteps     int
)

var rootCmd = &cobra.Command{
	Use:           "migrator",
	Short:         "Run authguard database migrations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrator()
		if err != nil {
			return err
		}
		defer closeMigrator(m)

		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				fmt.Fprintln(cmd.OutOrStdout(), "no change")
				return nil
			}
			return fmt.Errorf("migrate up failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the given number of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if downSteps <= 0 {
			return fmt.Errorf("--steps must be positive, got %d", downSteps)
		}

		m, err := newMigrator()
		if err != nil {
			return err
		}
		defer closeMigrator(m)

		if err := m.Steps(-downSteps); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				fmt.Fprintln(cmd.OutOrStdout(), "no change")
				return nil
			}
			return fmt.Errorf("migrate down failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", downSteps)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrator()
		if err != nil {
			return err
		}
		defer closeMigrator(m)

		v, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			return fmt.Errorf("read version failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "postgres URL (default: $DATABASE_URL or db.db_url from config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&migrationsURL, "migrations", "file://migrations", "migrations source URL")
	downCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")

	rootCmd.AddCommand(upCmd, downCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "migrator: %v\n", err)
		os.Exit(1)
	}
}

func newMigrator() (*migrate.Migrate, error) {
	dsn, err := resolveDBURL(dbURL, configPath)
	if err != nil {
		return nil, err
	}

	m, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}

	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	_, _ = m.Close()
}

// resolveDBURL: флаг --db-url -> DATABASE_URL (в т.ч. из .env) -> полный конфиг.
// Миграциям не нужен JWT-секрет, поэтому конфиг читается только в последнюю очередь.
func resolveDBURL(flagURL, cfgPath string) (string, error) {
	if u := strings.TrimSpace(flagURL); u != "" {
		return u, nil
	}

	_ = godotenv.Load()

	if u := strings.TrimSpace(os.Getenv("DATABASE_URL")); u != "" {
		return u, nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return "", fmt.Errorf("database url not set: %w", err)
	}

	if u := strings.TrimSpace(cfg.DB.DatabaseURL); u != "" {
		return u, nil
	}

	return "", errors.New("database url not set: use --db-url, DATABASE_URL or db.db_url")
}
