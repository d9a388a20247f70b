package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dentalclinic/backend/internal/infrastructure/config"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/infrastructure/migration"
	"github.com/dentalclinic/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// cli holds the flags shared by every subcommand
type cli struct {
	path     string
	logLevel string
	log      *zap.Logger
}

func main() {
	c := &cli{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the clinic database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(&logger.Config{
				Level:      c.logLevel,
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			c.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = logger.Sync(c.log)
			}
		},
	}
	root.PersistentFlags().StringVar(&c.path, "path", "", "migrations directory; empty uses the migrations built into the binary")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.withMigrator("up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		c.withMigrator("down", "Roll back the last migration", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		c.withMigrator("steps N", "Apply N migrations (negative rolls back)", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		c.withMigrator("goto VERSION", "Migrate up or down to VERSION", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		c.withMigrator("version", "Print the current schema version", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				if !st.Applied {
					fmt.Println("no migrations applied")
					return nil
				}
				fmt.Printf("version %d (dirty: %t)\n", st.Version, st.Dirty)
				return nil
			}),
		c.withMigrator("force VERSION", "Mark VERSION as applied and clean a dirty schema", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		c.dropCommand(),
		c.createCommand(),
		c.listCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withMigrator builds a subcommand that runs against the configured database
func (c *cli) withMigrator(use, short string, args cobra.PositionalArgs, run func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			m, closeFn, err := c.open()
			if err != nil {
				return err
			}
			defer closeFn()
			return run(m, a)
		},
	}
}

func (c *cli) dropCommand() *cobra.Command {
	var confirm bool
	cmd := c.withMigrator("drop", "Drop every table in the database", cobra.NoArgs,
		func(m *migration.Migrator, _ []string) error {
			if !confirm {
				return errors.New("drop deletes all data; rerun with --yes to confirm")
			}
			return m.Drop()
		})
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all tables")
	return cmd
}

func (c *cli) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME [DESCRIPTION]",
		Short: "Write the next empty up/down migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) > 1 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(c.directory(), args[0], description)
			if err != nil {
				return err
			}
			c.log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List migration files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := migration.ListMigrations(c.directory())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				c.log.Info("No migrations found")
				return nil
			}
			for _, name := range names {
				fmt.Println("  -", name)
			}
			return nil
		},
	}
}

// directory resolves --path for commands that touch files
func (c *cli) directory() string {
	path := c.path
	if path == "" {
		path = defaultMigrationsPath
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// open connects to the configured database. Without --path the migrations
// embedded in the binary are used.
func (c *cli) open() (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	dsn := cfg.Database.DSN()

	if c.path == "" {
		c.log.Info("Using embedded migrations")
		m, err := migration.NewEmbedded(dsn, migrations.FS, c.log)
		if err != nil {
			return nil, nil, err
		}
		return m, c.closer(m, nil), nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	c.log.Info("Using migrations directory", zap.String("path", c.directory()))
	m, err := migration.New(db, c.directory(), c.log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, c.closer(m, db), nil
}

func (c *cli) closer(m *migration.Migrator, db *sql.DB) func() {
	return func() {
		if err := m.Close(); err != nil {
			c.log.Warn("Error closing migrator", zap.Error(err))
		}
		if db != nil {
			_ = db.Close()
		}
	}
}
