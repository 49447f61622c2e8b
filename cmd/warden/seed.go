// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/auth"
	authpg "github.com/wardenauth/warden/internal/auth/postgres"
	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedRoles are created in order so a fresh database assigns "user" the
// default role id.
var seedRoles = []string{"user", "admin"}

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with the built-in roles",
		Long: `Creates the built-in "user" and "admin" roles.
This command is idempotent - it will not create duplicates if run multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	appCfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, appCfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	cmd.Println("Running migrations...")
	migrator, err := store.NewMigrator(appCfg.Database.URL)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close() //nolint:errcheck // migration error takes precedence
		return err
	}
	if err := migrator.Close(); err != nil {
		return err
	}

	roles := authpg.NewRoleRepository(pool)
	for _, name := range seedRoles {
		role := &auth.Role{Name: name}
		if err := roles.Create(ctx, role); err != nil {
			if errors.Is(err, auth.ErrDuplicate) {
				cmd.Printf("Role %q already exists, skipping\n", name)
				continue
			}
			return err
		}
		cmd.Printf("Created role %q (id %d)\n", name, role.ID)
	}

	cmd.Println("Seed completed successfully")
	return nil
}
