// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package main

import (
	"context"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gridquest/gridquest/internal/store"
)

// migratorProvider is implemented by the SQL backends.
type migratorProvider interface {
	Migrator() (*store.Migrator, error)
}

// versionReporter is implemented by backends without numbered migrations.
type versionReporter interface {
	Version() (string, error)
}

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run storage migrations",
		Long:  `Bring the configured storage backend's schema up to date.`,
		RunE:  runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE:  runMigrateStatus,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Long:  `Roll back the most recent migration. Only the SQL backends support this.`,
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the migration version without running migrations",
		Long: `Record VERSION as the current migration version and clear the dirty
flag. Use this to recover from a failed migration. Only the SQL backends
support this.`,
		Args: cobra.ExactArgs(1),
		RunE: runMigrateForce,
	})

	return cmd
}

// openConfiguredStore loads configuration and opens the backend it selects.
func openConfiguredStore(cmd *cobra.Command) (store.Backend, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	backend, err := openStore(commandContext(cmd), cfg.Store)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Store.Driver).Wrap(err)
	}
	return backend, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func closeStore(cmd *cobra.Command, backend store.Backend) {
	if err := backend.Close(); err != nil {
		cmd.PrintErrln("Warning: failed to close store:", err)
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	backend, err := openConfiguredStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(cmd, backend)

	cmd.Printf("Running %s migrations...\n", backend.Name())
	if err := backend.Migrate(commandContext(cmd)); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

// sqlMigrator returns the numbered migrator of a SQL backend, or an error
// naming the command for backends without one.
func sqlMigrator(backend store.Backend, command string) (*store.Migrator, error) {
	provider, ok := backend.(migratorProvider)
	if !ok {
		return nil, oops.Code("MIGRATION_UNSUPPORTED").
			With("driver", backend.Name()).
			Errorf("migrate %s is not supported by the %s store", command, backend.Name())
	}
	return provider.Migrator()
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	backend, err := openConfiguredStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(cmd, backend)

	if reporter, ok := backend.(versionReporter); ok {
		v, err := reporter.Version()
		if err != nil {
			return err
		}
		if v == "" {
			cmd.Printf("Store: %s\nSchema: not initialized\n", backend.Name())
		} else {
			cmd.Printf("Store: %s\nSchema version: %s\n", backend.Name(), v)
		}
		return nil
	}

	m, err := sqlMigrator(backend, "status")
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrln("Warning: failed to close migrator:", closeErr)
		}
	}()

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	applied, err := m.AppliedMigrations()
	if err != nil {
		return err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}

	cmd.Printf("Store: %s\n", backend.Name())
	if dirty {
		cmd.Printf("Current version: %d (dirty)\n", version)
	} else {
		cmd.Printf("Current version: %d\n", version)
	}

	cmd.Printf("Applied: %d\n", len(applied))
	if err := printMigrations(cmd, m, applied); err != nil {
		return err
	}
	cmd.Printf("Pending: %d\n", len(pending))
	return printMigrations(cmd, m, pending)
}

func printMigrations(cmd *cobra.Command, m *store.Migrator, versions []uint) error {
	for _, v := range versions {
		name, err := m.Name(v)
		if err != nil {
			return err
		}
		cmd.Printf("  %s\n", name)
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	backend, err := openConfiguredStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(cmd, backend)

	m, err := sqlMigrator(backend, "down")
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrln("Warning: failed to close migrator:", closeErr)
		}
	}()

	if err := m.Steps(-1); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "roll back migration").Wrap(err)
	}
	cmd.Println("Rolled back one migration")
	return nil
}

// parseForceVersion parses the VERSION argument of migrate force.
func parseForceVersion(arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", arg).Errorf("invalid version %q: must be an integer", arg)
	}
	if v < -1 {
		return 0, oops.Code("INVALID_VERSION").With("input", arg).Errorf("invalid version %d: must be -1 or greater", v)
	}
	return v, nil
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	v, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}

	backend, err := openConfiguredStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(cmd, backend)

	m, err := sqlMigrator(backend, "force")
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrln("Warning: failed to close migrator:", closeErr)
		}
	}()

	if err := m.Force(v); err != nil {
		return err
	}
	cmd.Printf("Forced migration version to %d\n", v)
	return nil
}
