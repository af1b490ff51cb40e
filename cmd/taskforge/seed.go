// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package main

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/logging"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedTask is a task created for a seeded user.
type seedTask struct {
	description string
	completed   bool
}

// seedUser is an account created by the seed command.
type seedUser struct {
	profile auth.Profile
	tasks   []seedTask
}

// seedData is the demo data set.
var seedData = []seedUser{
	{
		profile: auth.Profile{Name: "Maria", Email: "maria@example.com", Password: "Pass73ifti"},
		tasks: []seedTask{
			{description: "First task", completed: true},
			{description: "Second task", completed: true},
		},
	},
	{
		profile: auth.Profile{Name: "Ifti", Email: "ifti@example.com", Password: "iftiPass73ifti"},
		tasks: []seedTask{
			{description: "Third task", completed: true},
		},
	},
}

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with demo accounts",
		Long: `Creates demo users and their tasks.
This command is idempotent - accounts that already exist are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := config.Load(configSources(cmd))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
			defer cancel()
			return runSeed(ctx, cmd, appCfg, openStorage)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(ctx context.Context, cmd *cobra.Command, cfg config.Config, open storageOpener) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.Setup("taskforge", version, cfg.Log.Format, level, cmd.ErrOrStderr())

	st, err := open(ctx, cfg.Storage, logger)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "open storage").Wrap(err)
	}
	defer st.Close()

	a, err := buildApp(cfg, st, nil, logger)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	created := 0
	for _, su := range seedData {
		u := auth.NewUser(su.profile)
		if err := a.accounts.Save(ctx, u); err != nil {
			if errors.Is(err, auth.ErrEmailTaken) {
				cmd.Printf("User %s already exists, skipping\n", u.Email)
				continue
			}
			return oops.Code("SEED_FAILED").With("operation", "create user").With("email", u.Email).Wrap(err)
		}
		for _, t := range su.tasks {
			if _, err := a.tasks.Create(ctx, u.ID, t.description, t.completed); err != nil {
				return oops.Code("SEED_FAILED").With("operation", "create task").With("email", u.Email).Wrap(err)
			}
		}
		created++
		cmd.Printf("Created user %s with %d task(s)\n", u.Email, len(su.tasks))
	}

	logger.Info("seed complete", "users_created", created)
	cmd.Println("Seeding complete!")
	return nil
}
