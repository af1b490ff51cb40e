// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/apperr"
)

// UserFinder loads users by id.
type UserFinder interface {
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)
}

// Authenticator resolves bearer tokens to users.
type Authenticator struct {
	tokens TokenIssuer
	users  UserFinder
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens TokenIssuer, users UserFinder) (*Authenticator, error) {
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if users == nil {
		return nil, oops.Errorf("user finder is required")
	}
	return &Authenticator{tokens: tokens, users: users}, nil
}

// Authenticate verifies token and returns the identity it belongs to.
// A valid signature is not enough: the token must still be one of the
// user's active sessions.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	userID, err := a.tokens.Verify(token)
	if err != nil {
		return Identity{}, err
	}

	u, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, apperr.Unauthorized(CodeTokenRevoked, "token owner no longer exists")
		}
		return Identity{}, oops.With("operation", "load token owner").Wrap(err)
	}

	if !u.HasToken(token) {
		return Identity{}, apperr.Unauthorized(CodeTokenRevoked, "token is no longer active")
	}
	return Identity{User: u, Token: token}, nil
}
