// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/apperr"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when saving a user whose email belongs to another user.
var ErrEmailTaken = errors.New("email already in use")

// Error codes.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeEmailTaken         = "USER_EMAIL_TAKEN"
	CodeInvalidUpdates     = "USER_INVALID_UPDATES"
	CodeValidation         = "USER_VALIDATION_FAILED"
	CodeAvatarNotFound     = "AVATAR_NOT_FOUND"
	CodeTokenEmpty         = "TOKEN_EMPTY"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenRevoked       = "TOKEN_REVOKED"
)

// UserNotFound returns a not-found error for a user looked up by attr.
// Repository implementations use it so callers can test with errors.Is(err, ErrNotFound).
func UserNotFound(attr string, value any) error {
	return oops.Code(CodeUserNotFound).
		In(string(apperr.KindNotFound)).
		With(attr, value).
		Wrap(ErrNotFound)
}

// EmailTaken returns the validation error for a duplicate email.
func EmailTaken(email string) error {
	return oops.Code(CodeEmailTaken).
		In(string(apperr.KindValidation)).
		With(apperr.FieldsKey, map[string]string{"email": "is already in use"}).
		With("email", email).
		Wrap(ErrEmailTaken)
}
