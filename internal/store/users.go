// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/auth"
)

const userColumns = `id, name, email, password_hash, age, avatar, tokens, created_at, updated_at`

// PostgresUserRepository implements auth.UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	pool poolIface
}

// NewPostgresUserRepository creates a new PostgreSQL user repository.
func NewPostgresUserRepository(pool poolIface) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// FindByID loads the user with the given id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.UserNotFound("id", id.String())
	}
	if err != nil {
		return nil, oops.With("operation", "find user by id").With("user_id", id.String()).Wrap(err)
	}
	return u, nil
}

// FindByEmail loads the user with the given normalised email.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.UserNotFound("email", email)
	}
	if err != nil {
		return nil, oops.With("operation", "find user by email").Wrap(err)
	}
	return u, nil
}

// Save inserts the user or replaces the stored row with the same id.
func (r *PostgresUserRepository) Save(ctx context.Context, u *auth.User) error {
	tokens := u.Tokens
	if tokens == nil {
		tokens = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   email = EXCLUDED.email,
		   password_hash = EXCLUDED.password_hash,
		   age = EXCLUDED.age,
		   avatar = EXCLUDED.avatar,
		   tokens = EXCLUDED.tokens,
		   updated_at = EXCLUDED.updated_at`,
		u.ID.String(), u.Name, u.Email, u.PasswordHash, u.Age, u.Avatar, tokens, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return auth.EmailTaken(u.Email)
		}
		return oops.With("operation", "save user").With("user_id", u.ID.String()).Wrap(err)
	}
	return nil
}

// Remove deletes the user row.
func (r *PostgresUserRepository) Remove(ctx context.Context, id ulid.ULID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return oops.With("operation", "remove user").With("user_id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.UserNotFound("id", id.String())
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u         auth.User
		idStr     string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&idStr, &u.Name, &u.Email, &u.PasswordHash, &u.Age, &u.Avatar, &u.Tokens, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse user id").With("user_id", idStr).Wrap(err)
	}
	u.ID = id
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	if u.Tokens == nil {
		u.Tokens = []string{}
	}
	return &u, nil
}
