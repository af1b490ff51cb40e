// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package apperr defines the error kinds that cross component boundaries.
//
// Every error produced by the domain packages is an oops error with a stable
// code. The kind is carried as the oops domain so transports can translate an
// error into a response without knowing individual codes.
package apperr

import (
	"fmt"

	"github.com/samber/oops"
)

// Kind classifies an error for the transport layer.
type Kind string

// Error kinds.
const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindUnauthorized   Kind = "unauthorized"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
)

// FieldsKey is the oops context key holding field-level validation detail.
const FieldsKey = "fields"

// Validation returns a validation error for a single field.
func Validation(code, field, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return oops.Code(code).
		In(string(KindValidation)).
		With(FieldsKey, map[string]string{field: msg}).
		Errorf("%s: %s", field, msg)
}

// ValidationFields returns a validation error carrying several field messages.
func ValidationFields(code string, fields map[string]string) error {
	return oops.Code(code).
		In(string(KindValidation)).
		With(FieldsKey, fields).
		Errorf("validation failed")
}

// AuthenticationFailed returns the generic credentials error.
// It deliberately carries no detail about which credential was wrong.
func AuthenticationFailed(code string) error {
	return oops.Code(code).In(string(KindAuthentication)).Errorf("unable to login")
}

// Unauthorized returns an error for a missing, invalid or revoked token.
func Unauthorized(code, format string, args ...any) error {
	return oops.Code(code).In(string(KindUnauthorized)).Errorf(format, args...)
}

// NotFound returns a not-found error.
func NotFound(code, format string, args ...any) error {
	return oops.Code(code).In(string(KindNotFound)).Errorf(format, args...)
}

// KindOf resolves the kind of err. Errors without a recognised domain,
// including plain errors, are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	switch k := Kind(oopsErr.Domain()); k {
	case KindValidation, KindAuthentication, KindUnauthorized, KindNotFound:
		return k
	default:
		return KindInternal
	}
}

// Is reports whether err is of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Fields returns the field-level validation detail carried by err, if any.
func Fields(err error) map[string]string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	if fields, ok := oopsErr.Context()[FieldsKey].(map[string]string); ok {
		return fields
	}
	return nil
}
