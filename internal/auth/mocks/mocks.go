// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package mocks provides testify mocks for the auth ports.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/notify"
)

// T is the subset of testing.T the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FindByID implements auth.UserRepository.
func (m *MockUserRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

// FindByEmail implements auth.UserRepository.
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

// Save implements auth.UserRepository.
func (m *MockUserRepository) Save(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// Remove implements auth.UserRepository.
func (m *MockUserRepository) Remove(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// MockTaskRemover is a mock auth.TaskRemover.
type MockTaskRemover struct {
	mock.Mock
}

// NewMockTaskRemover creates a mock that asserts its expectations on cleanup.
func NewMockTaskRemover(t T) *MockTaskRemover {
	m := &MockTaskRemover{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// DeleteByOwner implements auth.TaskRemover.
func (m *MockTaskRemover) DeleteByOwner(ctx context.Context, owner ulid.ULID) (int64, error) {
	args := m.Called(ctx, owner)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

// MockTokenIssuer is a mock auth.TokenIssuer.
type MockTokenIssuer struct {
	mock.Mock
}

// NewMockTokenIssuer creates a mock that asserts its expectations on cleanup.
func NewMockTokenIssuer(t T) *MockTokenIssuer {
	m := &MockTokenIssuer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Issue implements auth.TokenIssuer.
func (m *MockTokenIssuer) Issue(userID ulid.ULID) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

// Verify implements auth.TokenIssuer.
func (m *MockTokenIssuer) Verify(token string) (ulid.ULID, error) {
	args := m.Called(token)
	id, _ := args.Get(0).(ulid.ULID)
	return id, args.Error(1)
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t T) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash implements auth.PasswordHasher.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify implements auth.PasswordHasher.
func (m *MockPasswordHasher) Verify(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

// NeedsUpgrade implements auth.PasswordHasher.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockNotifier is a mock auth.Notifier.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a mock that asserts its expectations on cleanup.
func NewMockNotifier(t T) *MockNotifier {
	m := &MockNotifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Notify implements auth.Notifier.
func (m *MockNotifier) Notify(ctx context.Context, kind notify.Kind, email, name string) {
	m.Called(ctx, kind, email, name)
}
