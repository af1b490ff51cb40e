// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package memstore provides in-memory user and task repositories.
//
// Records are copied on the way in and out so callers never share memory with
// the store, matching the behaviour of a real database.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/task"
)

// Users implements auth.UserRepository in memory.
type Users struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.User
	byEmail map[string]ulid.ULID
}

// NewUsers creates an empty Users store.
func NewUsers() *Users {
	return &Users{
		byID:    make(map[ulid.ULID]*auth.User),
		byEmail: make(map[string]ulid.ULID),
	}
}

// FindByID returns the user with id.
func (s *Users) FindByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, auth.UserNotFound("id", id.String())
	}
	return u.Clone(), nil
}

// FindByEmail returns the user with email.
func (s *Users) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, auth.UserNotFound("email", email)
	}
	return s.byID[id].Clone(), nil
}

// Save inserts or replaces user.
func (s *Users) Save(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byEmail[user.Email]; ok && owner != user.ID {
		return auth.EmailTaken(user.Email)
	}
	if prev, ok := s.byID[user.ID]; ok && prev.Email != user.Email {
		delete(s.byEmail, prev.Email)
	}
	s.byID[user.ID] = user.Clone()
	s.byEmail[user.Email] = user.ID
	return nil
}

// Remove deletes the user with id.
func (s *Users) Remove(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return auth.UserNotFound("id", id.String())
	}
	delete(s.byEmail, u.Email)
	delete(s.byID, id)
	return nil
}

// Tasks implements task.Repository in memory.
type Tasks struct {
	mu    sync.RWMutex
	tasks map[ulid.ULID]task.Task
}

// NewTasks creates an empty Tasks store.
func NewTasks() *Tasks {
	return &Tasks{tasks: make(map[ulid.ULID]task.Task)}
}

// Create stores t.
func (s *Tasks) Create(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
	return nil
}

// FindByOwner returns the tasks owned by owner, oldest first.
func (s *Tasks) FindByOwner(_ context.Context, owner ulid.ULID) ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*task.Task{}
	for _, t := range s.tasks {
		if t.Owner == owner {
			c := t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Compare(out[j].ID) < 0
	})
	return out, nil
}

// DeleteByOwner removes every task owned by owner and returns how many were removed.
func (s *Tasks) DeleteByOwner(_ context.Context, owner ulid.ULID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tasks {
		if t.Owner == owner {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored tasks.
func (s *Tasks) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
