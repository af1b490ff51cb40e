// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package store

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/task"
)

// PostgresTaskRepository implements task.Repository using PostgreSQL.
type PostgresTaskRepository struct {
	pool poolIface
}

// NewPostgresTaskRepository creates a new PostgreSQL task repository.
func NewPostgresTaskRepository(pool poolIface) *PostgresTaskRepository {
	return &PostgresTaskRepository{pool: pool}
}

// Create inserts a task.
func (r *PostgresTaskRepository) Create(ctx context.Context, t *task.Task) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (id, description, completed, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID.String(), t.Description, t.Completed, t.Owner.String(), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return oops.With("operation", "create task").With("task_id", t.ID.String()).Wrap(err)
	}
	return nil
}

// FindByOwner returns the tasks of owner ordered by id, which is creation order.
func (r *PostgresTaskRepository) FindByOwner(ctx context.Context, owner ulid.ULID) ([]*task.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, description, completed, owner_id, created_at, updated_at
		 FROM tasks WHERE owner_id = $1 ORDER BY id`,
		owner.String())
	if err != nil {
		return nil, oops.With("operation", "find tasks by owner").With("owner_id", owner.String()).Wrap(err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		var t task.Task
		var idStr, ownerStr string
		if err := rows.Scan(&idStr, &t.Description, &t.Completed, &ownerStr, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, oops.With("operation", "scan task row").With("owner_id", owner.String()).Wrap(err)
		}
		if t.ID, err = ulid.Parse(idStr); err != nil {
			return nil, oops.With("operation", "parse task id").With("task_id", idStr).Wrap(err)
		}
		if t.Owner, err = ulid.Parse(ownerStr); err != nil {
			return nil, oops.With("operation", "parse task owner").With("owner_id", ownerStr).Wrap(err)
		}
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate tasks").With("owner_id", owner.String()).Wrap(err)
	}
	return tasks, nil
}

// DeleteByOwner removes every task of owner and reports how many went.
func (r *PostgresTaskRepository) DeleteByOwner(ctx context.Context, owner ulid.ULID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE owner_id = $1`, owner.String())
	if err != nil {
		return 0, oops.With("operation", "delete tasks by owner").With("owner_id", owner.String()).Wrap(err)
	}
	return tag.RowsAffected(), nil
}
