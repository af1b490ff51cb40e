// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/store/memstore"
	"github.com/taskforge/taskforge/internal/task"
)

// Storage bundles the repositories of one backend.
type Storage struct {
	Users auth.UserRepository
	Tasks task.Repository
	// Ready reports whether the backend can serve requests.
	Ready func(ctx context.Context) bool
	// Close releases the backend.
	Close func()
}

// openStorage opens the backend selected by cfg.Driver.
func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return &Storage{
			Users: memstore.NewUsers(),
			Tasks: memstore.NewTasks(),
			Ready: func(context.Context) bool { return true },
			Close: func() {},
		}, nil
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Driver).Errorf("unknown storage driver")
	}
}

func openPostgres(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Storage, error) {
	if cfg.DatabaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("storage.database_url is required")
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL, cfg.ConnectRetries, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := applyMigrations(cfg.DatabaseURL, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Storage{
		Users: store.NewPostgresUserRepository(pool),
		Tasks: store.NewPostgresTaskRepository(pool),
		Ready: func(ctx context.Context) bool { return pool.Ping(ctx) == nil },
		Close: pool.Close,
	}, nil
}

// applyMigrations brings the schema up to date.
func applyMigrations(databaseURL string, logger *slog.Logger) (err error) {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	pending, err := m.PendingMigrations()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "list pending migrations").Wrap(err)
	}
	if len(pending) == 0 {
		logger.Info("database schema is up to date")
		return nil
	}

	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("applied database migrations", "count", len(pending))
	return nil
}
