// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/membership/internal/config"
	"github.com/holomush/membership/internal/store"
)

// migratorFactory is replaced in tests.
var migratorFactory = newStoreMigrator

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the membership database schema",
		Long: `Apply, roll back and inspect the embedded PostgreSQL migrations.
Without a subcommand, applies every pending migration.`,
		RunE: runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})

	var steps int
	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long:  `Roll back the given number of migrations, or every migration with --all.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateDown(cmd, steps, all)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().BoolVar(&all, "all", false, "roll back every migration (drops all membership tables)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE:  runMigrateStatus,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Record VERSION as applied and clear the dirty flag",
		Long: `Record VERSION as the current schema version without running any SQL.
Use it to recover after a migration failed part way.`,
		Args: cobra.ExactArgs(1),
		RunE: runMigrateForce,
	})

	return cmd
}

// databaseURL returns the PostgreSQL URL the migrate commands act on.
func databaseURL(cfg config.Config) (string, error) {
	if cfg.Database.InMemory {
		return "", oops.Code("CONFIG_INVALID").With("field", "database.in_memory").
			Errorf("migrations need PostgreSQL; in-memory storage has no schema")
	}
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").With("field", "database.url").
			Errorf("database url is required (set %s or --database-url)", config.EnvDatabaseURL)
	}
	return cfg.Database.URL, nil
}

// withMigrator loads the configuration, opens a migrator and closes it after fn.
func withMigrator(cmd *cobra.Command, fn func(m Migrator) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	url, err := databaseURL(cfg)
	if err != nil {
		return err
	}

	m, err := migratorFactory(url)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m Migrator) error {
		pending, err := m.PendingMigrations()
		if err != nil {
			return err //nolint:wrapcheck // already carries a code
		}
		if len(pending) == 0 {
			cmd.Println("Database is up to date")
			return nil
		}
		cmd.Printf("Applying %d migration(s)...\n", len(pending))
		if err := m.Up(); err != nil {
			return err //nolint:wrapcheck // already carries a code
		}
		version, _, err := m.Version()
		if err != nil {
			return err //nolint:wrapcheck // already carries a code
		}
		cmd.Printf("Migrations completed successfully (version %d)\n", version)
		return nil
	})
}

func runMigrateDown(cmd *cobra.Command, steps int, all bool) error {
	if !all && steps < 1 {
		return oops.Code("INVALID_STEPS").With("steps", steps).Errorf("--steps must be at least 1")
	}
	return withMigrator(cmd, func(m Migrator) error {
		if all {
			cmd.Println("Rolling back all migrations...")
			if err := m.Down(); err != nil {
				return err //nolint:wrapcheck // already carries a code
			}
		} else {
			cmd.Printf("Rolling back %d migration(s)...\n", steps)
			if err := m.Steps(-steps); err != nil {
				return err //nolint:wrapcheck // already carries a code
			}
		}
		version, _, err := m.Version()
		if err != nil {
			return err //nolint:wrapcheck // already carries a code
		}
		cmd.Printf("Rollback complete (version %d)\n", version)
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m Migrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err //nolint:wrapcheck // already carries a code
		}
		applied, err := m.AppliedMigrations()
		if err != nil {
			return err //nolint:wrapcheck // already carries a code
		}
		pending, err := m.PendingMigrations()
		if err != nil {
			return err //nolint:wrapcheck // already carries a code
		}
		cmd.Print(formatMigrationStatus(version, dirty, applied, pending))
		return nil
	})
}

func formatMigrationStatus(version uint, dirty bool, applied, pending []uint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current version: %d", version)
	if dirty {
		b.WriteString(" (dirty: run 'migrate force' after fixing the failed migration)")
	}
	b.WriteString("\n")

	section := func(title string, versions []uint) {
		fmt.Fprintf(&b, "%s: %d\n", title, len(versions))
		for _, v := range versions {
			name, err := store.MigrationName(v)
			if err != nil || name == "" {
				name = fmt.Sprintf("%06d", v)
			}
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	section("Applied", applied)
	section("Pending", pending)
	return b.String()
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}
	return withMigrator(cmd, func(m Migrator) error {
		if err := m.Force(version); err != nil {
			return err //nolint:wrapcheck // already carries a code
		}
		cmd.Printf("Forced version %d\n", version)
		return nil
	})
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer, got %q", s)
	}
	return version, nil
}
