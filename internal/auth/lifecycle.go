// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/pkg/errutil"
)

// Accounts is the persistence entry point for users. It runs the lifecycle
// hooks around every write so no caller can bypass them.
type Accounts struct {
	users  UserRepository
	tasks  TaskRemover
	hasher PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

// NewAccounts creates an Accounts store.
func NewAccounts(users UserRepository, tasks TaskRemover, hasher PasswordHasher, logger *slog.Logger) (*Accounts, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if tasks == nil {
		return nil, oops.Errorf("task remover is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Accounts{
		users:  users,
		tasks:  tasks,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}, nil
}

// FindByID loads a user by id.
func (a *Accounts) FindByID(ctx context.Context, id ulid.ULID) (*User, error) {
	//nolint:wrapcheck // repository errors already carry code and kind
	return a.users.FindByID(ctx, id)
}

// FindByEmail loads a user by normalised email.
func (a *Accounts) FindByEmail(ctx context.Context, email string) (*User, error) {
	//nolint:wrapcheck // repository errors already carry code and kind
	return a.users.FindByEmail(ctx, NormalizeEmail(email))
}

// BeforeSave validates u and hashes a staged password. An unchanged password
// is never re-hashed.
func (a *Accounts) BeforeSave(u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	if u.passwordModified {
		hash, err := a.hasher.Hash(u.password)
		if err != nil {
			return oops.With("operation", "hash password").With("user_id", u.ID.String()).Wrap(err)
		}
		u.PasswordHash = hash
		u.password = ""
		u.passwordModified = false
	}

	now := a.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Tokens == nil {
		u.Tokens = []string{}
	}
	return nil
}

// Save runs BeforeSave and persists u.
func (a *Accounts) Save(ctx context.Context, u *User) error {
	if err := a.BeforeSave(u); err != nil {
		return err
	}
	if err := a.users.Save(ctx, u); err != nil {
		return oops.With("operation", "save user").With("user_id", u.ID.String()).Wrap(err)
	}
	return nil
}

// BeforeDelete removes every task owned by u.
func (a *Accounts) BeforeDelete(ctx context.Context, u *User) error {
	n, err := a.tasks.DeleteByOwner(ctx, u.ID)
	if err != nil {
		return oops.Code("ACCOUNT_CASCADE_FAILED").
			With("operation", "delete owned tasks").
			With("user_id", u.ID.String()).
			Wrap(err)
	}
	a.logger.DebugContext(ctx, "deleted owned tasks", "user_id", u.ID.String(), "count", n)
	return nil
}

// Remove runs BeforeDelete and deletes u. The two steps are not atomic: if
// the user delete fails after the tasks were removed, the user remains
// without tasks.
func (a *Accounts) Remove(ctx context.Context, u *User) error {
	if err := a.BeforeDelete(ctx, u); err != nil {
		return err
	}
	if err := a.users.Remove(ctx, u.ID); err != nil {
		err = oops.With("operation", "remove user").
			With("user_id", u.ID.String()).
			With("cascade", "partial").
			Wrap(err)
		errutil.LogErrorContext(ctx, a.logger, "user removal failed after task cascade", err)
		return err
	}
	return nil
}
