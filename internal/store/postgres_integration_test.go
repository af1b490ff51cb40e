// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

//go:build integration

package store_test

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/task"
)

// setupPostgres starts a PostgreSQL container and applies the migrations.
func setupPostgres() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("taskforge_test"),
		postgres.WithUsername("taskforge"),
		postgres.WithPassword("taskforge"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	_ = migrator.Close()

	pool, err := store.Connect(ctx, connStr, 3, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return pool, cleanup, nil
}

func newUser(name, email string) *auth.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &auth.User{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$08$placeholderplaceholderplaceholderplaceholderpla",
		Tokens:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var _ = Describe("PostgreSQL repositories", func() {
	var (
		pool    *pgxpool.Pool
		cleanup func()
		users   *store.PostgresUserRepository
		tasks   *store.PostgresTaskRepository
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		pool, cleanup, err = setupPostgres()
		Expect(err).NotTo(HaveOccurred())
		users = store.NewPostgresUserRepository(pool)
		tasks = store.NewPostgresTaskRepository(pool)
		ctx = context.Background()
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("users", func() {
		It("round-trips a user with sessions and avatar", func() {
			u := newUser("Maria", "maria@example.com")
			u.Age = 27
			u.Tokens = []string{"t1", "t2"}
			u.Avatar = []byte{0x89, 'P', 'N', 'G'}
			Expect(users.Save(ctx, u)).To(Succeed())

			got, err := users.FindByEmail(ctx, "maria@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(u.ID))
			Expect(got.Age).To(Equal(27))
			Expect(got.Tokens).To(Equal([]string{"t1", "t2"}))
			Expect(got.Avatar).To(Equal(u.Avatar))
			Expect(got.CreatedAt).To(BeTemporally("==", u.CreatedAt))
		})

		It("updates in place on save", func() {
			u := newUser("Maria", "maria@example.com")
			Expect(users.Save(ctx, u)).To(Succeed())

			u.Name = "Maria R"
			u.Tokens = []string{}
			Expect(users.Save(ctx, u)).To(Succeed())

			got, err := users.FindByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("Maria R"))
			Expect(got.Tokens).To(BeEmpty())
		})

		It("rejects a second user with the same email", func() {
			Expect(users.Save(ctx, newUser("Maria", "maria@example.com"))).To(Succeed())
			err := users.Save(ctx, newUser("Other", "maria@example.com"))
			Expect(err).To(MatchError(auth.ErrEmailTaken))
		})

		It("rejects a negative age", func() {
			u := newUser("Maria", "maria@example.com")
			u.Age = -1
			Expect(users.Save(ctx, u)).NotTo(Succeed())
		})

		It("reports missing users as not found", func() {
			_, err := users.FindByID(ctx, ulid.Make())
			Expect(err).To(MatchError(auth.ErrNotFound))
			Expect(users.Remove(ctx, ulid.Make())).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("tasks", func() {
		It("lists and deletes only the owner's tasks", func() {
			maria := ulid.Make()
			ifti := ulid.Make()
			now := time.Now().UTC()
			for _, desc := range []string{"First task", "Second task"} {
				t, err := task.NewTask(maria, desc, false)
				Expect(err).NotTo(HaveOccurred())
				t.CreatedAt, t.UpdatedAt = now, now
				Expect(tasks.Create(ctx, t)).To(Succeed())
			}
			other, err := task.NewTask(ifti, "Third task", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(tasks.Create(ctx, other)).To(Succeed())

			owned, err := tasks.FindByOwner(ctx, maria)
			Expect(err).NotTo(HaveOccurred())
			Expect(owned).To(HaveLen(2))
			Expect(owned[0].Description).To(Equal("First task"))

			n, err := tasks.DeleteByOwner(ctx, maria)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))

			remaining, err := tasks.FindByOwner(ctx, ifti)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(1))
		})
	})
})
