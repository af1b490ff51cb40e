// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/apperr"
)

// TokenIssuer creates and verifies signed session tokens bound to a user.
type TokenIssuer interface {
	// Issue returns a new signed token for userID.
	Issue(userID ulid.ULID) (string, error)

	// Verify checks the token signature and returns the user id it carries.
	// Any failure is reported as an Unauthorized error.
	Verify(token string) (ulid.ULID, error)
}

// tokenClaims is the JWT payload. Tokens have no expiry: a token stays
// usable until it is removed from its owner's session list.
type tokenClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// JWTIssuer implements TokenIssuer with HMAC-SHA256 signed JWTs.
type JWTIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewJWTIssuer creates a JWTIssuer signing with secret.
func NewJWTIssuer(secret string) (*JWTIssuer, error) {
	if secret == "" {
		return nil, oops.Code("TOKEN_SECRET_REQUIRED").Errorf("token signing secret is required")
	}
	return &JWTIssuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a new signed token for userID. Every call yields a distinct
// token, even within the same second, because each carries a fresh jti.
func (i *JWTIssuer) Issue(userID ulid.ULID) (string, error) {
	now := i.now()
	claims := tokenClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       ulid.Make().String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return signed, nil
}

// Verify checks the token signature and returns the user id it carries.
func (i *JWTIssuer) Verify(token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, apperr.Unauthorized(CodeTokenEmpty, "token is empty")
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		return ulid.ULID{}, oops.Code(CodeTokenInvalid).
			In(string(apperr.KindUnauthorized)).
			Wrap(err)
	}

	id, err := ulid.Parse(claims.UserID)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeTokenInvalid).
			In(string(apperr.KindUnauthorized)).
			With("claim", "_id").
			Wrap(err)
	}
	return id, nil
}
