// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/store"
)

// NewMigrateCmd creates the migrate subcommand and its actions.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back, or inspect schema migrations against the PostgreSQL database.`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateVersionCmd())
	cmd.AddCommand(newMigrateForceCmd())

	return cmd
}

// migratorFromConfig resolves the database URL the same way serve does, so
// "migrate up" and "serve" always target the same database.
func migratorFromConfig() (*store.Migrator, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, oops.Code("CONFIG_INVALID").
			Errorf("database URL is required (database.url or DATABASE_URL)")
	}
	return store.NewMigrator(cfg.Database.URL)
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrator, err := migratorFromConfig()
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }() //nolint:errcheck // migration result takes precedence

			cmd.Println("Applying migrations...")
			if err := migrator.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (destroys all data)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return oops.Code("CONFIRMATION_REQUIRED").
					Errorf("migrate down drops every table; re-run with --yes to confirm")
			}

			migrator, err := migratorFromConfig()
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }() //nolint:errcheck // migration result takes precedence

			cmd.Println("Rolling back migrations...")
			if err := migrator.Down(); err != nil {
				return err
			}
			cmd.Println("Rollback completed successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the destructive rollback")

	return cmd
}

func newMigrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrator, err := migratorFromConfig()
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }() //nolint:errcheck // version result takes precedence

			version, dirty, err := migrator.Version()
			if err != nil {
				return err
			}
			if version == 0 && !dirty {
				cmd.Println("No migrations applied")
				return nil
			}
			cmd.Printf("Version: %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version without running any migrations.
Use only to recover from a dirty state after manually repairing the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").
					With("argument", args[0]).
					Wrap(err)
			}

			migrator, err := migratorFromConfig()
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }() //nolint:errcheck // force result takes precedence

			if err := migrator.Force(version); err != nil {
				return err
			}
			cmd.Printf("Forced schema version to %d\n", version)
			return nil
		},
	}
}
