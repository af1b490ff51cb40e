// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// UserRepository persists users.
//
// Implementations enforce email uniqueness, returning EmailTaken when a save
// would duplicate another user's email, and return UserNotFound for missing
// users. Callers should go through Accounts so the lifecycle hooks run.
type UserRepository interface {
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Save inserts the user or replaces the stored record with the same id.
	Save(ctx context.Context, user *User) error
	Remove(ctx context.Context, id ulid.ULID) error
}

// TaskRemover deletes the tasks owned by a user.
type TaskRemover interface {
	DeleteByOwner(ctx context.Context, owner ulid.ULID) (int64, error)
}
