// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package task_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/apperr"
	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/store/memstore"
	"github.com/taskforge/taskforge/internal/task"
	"github.com/taskforge/taskforge/pkg/errutil"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, t *task.Task) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockRepository) FindByOwner(ctx context.Context, owner ulid.ULID) ([]*task.Task, error) {
	args := m.Called(ctx, owner)
	tasks, _ := args.Get(0).([]*task.Task)
	return tasks, args.Error(1)
}

func (m *mockRepository) DeleteByOwner(ctx context.Context, owner ulid.ULID) (int64, error) {
	args := m.Called(ctx, owner)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func seedOwner(t *testing.T, users *memstore.Users, name, email string) *auth.User {
	t.Helper()
	u := &auth.User{ID: ulid.Make(), Name: name, Email: email, PasswordHash: "x", Tokens: []string{}}
	require.NoError(t, users.Save(context.Background(), u))
	return u
}

func TestNewService_NilDependencies(t *testing.T) {
	svc, err := task.NewService(nil, memstore.NewUsers())
	require.Error(t, err)
	assert.Nil(t, svc)

	svc, err = task.NewService(memstore.NewTasks(), nil)
	require.Error(t, err)
	assert.Nil(t, svc)
}

func TestService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	maria := seedOwner(t, users, "Maria", "maria@example.com")
	ifti := seedOwner(t, users, "Ifti", "ifti@example.com")

	svc, err := task.NewService(memstore.NewTasks(), users)
	require.NoError(t, err)

	first, err := svc.Create(ctx, maria.ID, "First task", false)
	require.NoError(t, err)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	second, err := svc.Create(ctx, maria.ID, "Second task", true)
	require.NoError(t, err)
	_, err = svc.Create(ctx, ifti.ID, "Third task", true)
	require.NoError(t, err)

	got, err := svc.ListByOwner(ctx, maria.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	for _, tk := range got {
		assert.Equal(t, maria.ID, tk.Owner)
	}

	none, err := svc.ListByOwner(ctx, ulid.Make())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_Create_UnknownOwner(t *testing.T) {
	svc, err := task.NewService(memstore.NewTasks(), memstore.NewUsers())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), ulid.Make(), "Orphan", false)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	errutil.AssertErrorCode(t, err, task.CodeOwnerNotFound)
	assert.Contains(t, apperr.Fields(err), "owner")
}

func TestRepository_DeletesOwnedTasksOnAccountRemoval(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	maria := seedOwner(t, users, "Maria", "maria@example.com")
	ifti := seedOwner(t, users, "Ifti", "ifti@example.com")

	var tasks task.Repository = memstore.NewTasks()
	svc, err := task.NewService(tasks, users)
	require.NoError(t, err)
	for _, d := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, maria.ID, d, false)
		require.NoError(t, err)
	}
	_, err = svc.Create(ctx, ifti.ID, "d", false)
	require.NoError(t, err)

	accounts, err := auth.NewAccounts(users, tasks, auth.NewBcryptHasher(4), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, accounts.Remove(ctx, maria))

	left, err := svc.ListByOwner(ctx, maria.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	left, err = svc.ListByOwner(ctx, ifti.ID)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestService_RepositoryErrorsAreInternal(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	owner := seedOwner(t, users, "Maria", "maria@example.com")
	boom := errors.New("db down")

	repo := &mockRepository{}
	repo.Test(t)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*task.Task")).Return(boom)
	repo.On("FindByOwner", mock.Anything, owner.ID).Return(nil, boom)
	defer repo.AssertExpectations(t)

	svc, err := task.NewService(repo, users)
	require.NoError(t, err)

	_, err = svc.Create(ctx, owner.ID, "x", false)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	_, err = svc.ListByOwner(ctx, owner.ID)
	assert.ErrorIs(t, err, boom)
}
