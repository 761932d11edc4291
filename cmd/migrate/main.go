// Command migrate applies the PostgreSQL schema migrations and seeds demo data.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crm/dashboard/internal/infrastructure/auth"
	"github.com/crm/dashboard/internal/infrastructure/config"
	"github.com/crm/dashboard/internal/infrastructure/logger"
	"github.com/crm/dashboard/internal/infrastructure/migration"
	"github.com/crm/dashboard/internal/infrastructure/persistence"
	"github.com/crm/dashboard/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

var (
	migrationsPath string
	logLevel       string
	confirmDrop    bool

	log *zap.Logger
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "CRM database migration tool",
	Long: `Applies the golang-migrate SQL files to PostgreSQL.

Migrations compiled into the binary are used unless --path is given.
Connection settings come from config.toml and CRM_DATABASE_* variables.

Examples:
  migrate up
  migrate step -1
  migrate create add_supplier_email "Add supplier contact email"
  migrate seed
  echo -n 's3cret' | migrate hash-password`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		log, err = logger.New(&logger.Config{
			Level:      logLevel,
			Format:     "console",
			Output:     "stdout",
			TimeFormat: "2006-01-02 15:04:05",
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log.Info("Migration CLI started", zap.String("command", cmd.Name()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = logger.Sync(log)
		}
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error { return m.Up() })
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error { return m.Down() })
	},
}

var stepCmd = &cobra.Command{
	Use:   "step <n>",
	Short: "Apply n migrations (positive=up, negative=down)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return withMigrator(func(m *migration.Migrator) error { return m.Steps(n) })
	},
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[0])
		}
		return withMigrator(func(m *migration.Migrator) error { return m.GoTo(uint(version)) })
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			status, err := m.Status()
			if err != nil {
				return err
			}
			if !status.Applied {
				log.Info("No migrations applied")
				return nil
			}
			log.Info("Current migration version",
				zap.Uint("version", status.Version),
				zap.Bool("dirty", status.Dirty),
			)
			return nil
		})
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[0])
		}
		log.Warn("Forcing migration version - use with caution!")
		return withMigrator(func(m *migration.Migrator) error { return m.Force(version) })
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop all database objects (DANGEROUS)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmDrop {
			return fmt.Errorf("drop cancelled, use 'migrate drop --confirm' to confirm")
		}
		return withMigrator(func(m *migration.Migrator) error { return m.Drop() })
	},
}

var createCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Create a new migration file pair",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description := ""
		if len(args) > 1 {
			description = args[1]
		}

		dir, err := resolveMigrationsPath()
		if err != nil {
			return err
		}
		mf, err := migration.CreateMigration(dir, args[0], description)
		if err != nil {
			return err
		}

		log.Info("Migration created successfully",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		fsys, err := migrationsFS()
		if err != nil {
			return err
		}
		items, err := migration.ListMigrations(fsys)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			log.Info("No migrations found")
			return nil
		}

		log.Info("Available migrations", zap.Int("count", len(items)))
		for _, m := range items {
			fmt.Fprintln(cmd.OutOrStdout(), "  -", m)
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo users, products, orders, expenses and purchases",
	Long: `Insert demo rows. Existing rows are left untouched, so seeding twice is safe.
The admin user gets auth.password as its password.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(logLevel))
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()

		res, err := persistence.NewSeeder(db.DB, log).Seed(cmd.Context(), cfg.Auth.Password)
		if err != nil {
			return err
		}
		log.Info("Seed completed",
			zap.Int64("users", res.Users),
			zap.Int64("products", res.Products),
			zap.Int64("orders", res.Orders),
			zap.Int64("order_items", res.OrderItems),
			zap.Int64("expenses", res.Expenses),
			zap.Int64("purchases", res.Purchases),
		)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for auth.password_hash",
	Long: `Print a bcrypt hash for auth.password_hash (CRM_AUTH_PASSWORD_HASH).
The password is read from the first line of stdin when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	// Needs neither a database nor config.toml.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password from stdin: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return fmt.Errorf("password must not be empty")
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	dropCmd.Flags().BoolVar(&confirmDrop, "confirm", false, "Confirm dropping all database objects")

	rootCmd.AddCommand(upCmd, downCmd, stepCmd, gotoCmd, versionCmd, forceCmd, dropCmd,
		createCmd, listCmd, seedCmd, hashPasswordCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withMigrator(fn func(*migration.Migrator) error) error {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	var m *migration.Migrator
	if migrationsPath != "" {
		dir, err := filepath.Abs(migrationsPath)
		if err != nil {
			return err
		}
		m, err = migration.New(db, dir, log)
		if err != nil {
			return err
		}
	} else {
		m, err = migration.NewEmbedded(db, migrations.FS, log)
		if err != nil {
			return err
		}
	}
	defer m.Close()

	return fn(m)
}

func migrationsFS() (fs.FS, error) {
	if migrationsPath == "" {
		return migrations.FS, nil
	}
	dir, err := filepath.Abs(migrationsPath)
	if err != nil {
		return nil, err
	}
	return os.DirFS(dir), nil
}

// resolveMigrationsPath finds the on-disk directory new files are written to
func resolveMigrationsPath() (string, error) {
	if migrationsPath != "" {
		return filepath.Abs(migrationsPath)
	}
	if _, err := os.Stat(defaultMigrationsPath); err == nil {
		return filepath.Abs(defaultMigrationsPath)
	}
	execPath, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsPath)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}
	return filepath.Abs(defaultMigrationsPath)
}
