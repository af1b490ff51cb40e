// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package task

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/apperr"
	"github.com/taskforge/taskforge/internal/auth"
)

// CodeOwnerNotFound is returned when a task names an owner that does not exist.
const CodeOwnerNotFound = "TASK_OWNER_NOT_FOUND"

// Service provides task operations.
type Service struct {
	tasks  Repository
	owners auth.UserFinder
	now    func() time.Time
}

// NewService creates a new Service.
func NewService(tasks Repository, owners auth.UserFinder) (*Service, error) {
	if tasks == nil {
		return nil, oops.Errorf("task repository is required")
	}
	if owners == nil {
		return nil, oops.Errorf("owner lookup is required")
	}
	return &Service{tasks: tasks, owners: owners, now: time.Now}, nil
}

// Create stores a new task for owner. The owner must exist.
func (s *Service) Create(ctx context.Context, owner ulid.ULID, description string, completed bool) (*Task, error) {
	t, err := NewTask(owner, description, completed)
	if err != nil {
		return nil, err
	}

	if _, err := s.owners.FindByID(ctx, owner); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, apperr.Validation(CodeOwnerNotFound, "owner", "does not reference an existing user")
		}
		return nil, oops.With("operation", "check task owner").Wrap(err)
	}

	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, oops.With("operation", "create task").With("owner", owner.String()).Wrap(err)
	}
	return t, nil
}

// ListByOwner returns the tasks owned by owner, oldest first.
func (s *Service) ListByOwner(ctx context.Context, owner ulid.ULID) ([]*Task, error) {
	tasks, err := s.tasks.FindByOwner(ctx, owner)
	if err != nil {
		return nil, oops.With("operation", "list tasks").With("owner", owner.String()).Wrap(err)
	}
	return tasks, nil
}
