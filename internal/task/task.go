// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package task implements user-owned tasks.
package task

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/apperr"
)

// CodeValidation is the error code for invalid task fields.
const CodeValidation = "TASK_VALIDATION_FAILED"

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID          ulid.ULID `json:"_id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       ulid.ULID `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTask creates a validated, unsaved task.
func NewTask(owner ulid.ULID, description string, completed bool) (*Task, error) {
	t := &Task{
		ID:          ulid.Make(),
		Description: strings.TrimSpace(description),
		Completed:   completed,
		Owner:       owner,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the task's fields.
func (t *Task) Validate() error {
	err := validation.ValidateStruct(t,
		validation.Field(&t.Description, validation.Required),
		validation.Field(&t.Owner, validation.By(func(v any) error {
			if id, _ := v.(ulid.ULID); id == (ulid.ULID{}) {
				return errors.New("is required")
			}
			return nil
		})),
	)
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

// Repository persists tasks.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	FindByOwner(ctx context.Context, owner ulid.ULID) ([]*Task, error)
	DeleteByOwner(ctx context.Context, owner ulid.ULID) (int64, error)
}
