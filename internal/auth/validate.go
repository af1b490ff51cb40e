// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package auth

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/apperr"
)

// Field constraints.
const (
	MinPasswordLength = 6
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
	MaxAvatarBytes    = 1_000_000
)

// forbiddenPasswordWord may not appear in a password, in any letter case.
const forbiddenPasswordWord = "password"

// userFields mirrors the validated attributes of a User. The json tags name
// the fields in validation errors.
type userFields struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
	Avatar   []byte `json:"avatar"`
}

var notContainPassword = validation.NewStringRule(func(s string) bool {
	return !strings.Contains(strings.ToLower(s), forbiddenPasswordWord)
}, `cannot contain "password"`)

// Validate checks the user's fields. The staged password is only checked when
// one was set since the user was loaded.
func (u *User) Validate() error {
	f := userFields{
		Name:     u.Name,
		Email:    u.Email,
		Password: u.password,
		Age:      u.Age,
		Avatar:   u.Avatar,
	}

	rules := []*validation.FieldRules{
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Email, validation.Required, is.Email),
		validation.Field(&f.Age, validation.Min(0).Error("must be a positive number")),
		validation.Field(&f.Avatar, validation.Length(0, MaxAvatarBytes)),
	}
	if u.passwordModified {
		rules = append(rules, validation.Field(&f.Password,
			validation.Required,
			validation.Length(MinPasswordLength, MaxPasswordLength),
			notContainPassword,
		))
	}

	return toValidationError(validation.ValidateStruct(&f, rules...))
}

// toValidationError converts ozzo validation errors to the application error
// taxonomy, keeping field-level detail.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return oops.Code(CodeValidation).Wrap(err)
	}

	fields := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		fields[field] = fieldErr.Error()
	}
	return apperr.ValidationFields(CodeValidation, fields)
}
