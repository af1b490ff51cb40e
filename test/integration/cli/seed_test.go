// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

//go:build integration

package cli_test

import (
	"context"
	"os/exec"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

func runCLI(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", append([]string{"run", "."}, args...)...)
	cmd.Dir = "../../../cmd/taskforge"
	cmd.Env = append(cmd.Environ(),
		"DATABASE_URL="+env.connStr,
		"JWT_SECRET=integration-secret",
		"TASKFORGE_STORAGE_DRIVER=postgres",
		"TASKFORGE_STORAGE_AUTO_MIGRATE=true",
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

var _ = Describe("Seed Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)
	})

	Describe("Account seeding", func() {
		It("creates the demo users and their tasks", func() {
			output, err := runCLI(ctx, "seed")
			Expect(err).NotTo(HaveOccurred(), "seed command failed: %s", output)
			Expect(output).To(ContainSubstring("Created user maria@example.com with 2 task(s)"))
			Expect(output).To(ContainSubstring("Created user ifti@example.com with 1 task(s)"))
			Expect(output).To(ContainSubstring("Seeding complete!"))

			var hash string
			err = env.pool.QueryRow(ctx,
				"SELECT password_hash FROM users WHERE email = $1", "maria@example.com",
			).Scan(&hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(HavePrefix("$2a$08$"))

			var tasks int
			err = env.pool.QueryRow(ctx,
				"SELECT count(*) FROM tasks t JOIN users u ON u.id = t.owner_id WHERE u.email = $1",
				"maria@example.com",
			).Scan(&tasks)
			Expect(err).NotTo(HaveOccurred())
			Expect(tasks).To(Equal(2))
		})

		It("is idempotent (running twice succeeds without duplicates)", func() {
			output1, err := runCLI(ctx, "seed")
			Expect(err).NotTo(HaveOccurred(), "first seed failed: %s", output1)
			Expect(output1).To(ContainSubstring("Created user"))

			output2, err := runCLI(ctx, "seed")
			Expect(err).NotTo(HaveOccurred(), "second seed failed: %s", output2)
			Expect(output2).To(ContainSubstring("User maria@example.com already exists, skipping"))
			Expect(output2).To(ContainSubstring("User ifti@example.com already exists, skipping"))

			var users, tasks int
			Expect(env.pool.QueryRow(ctx, "SELECT count(*) FROM users").Scan(&users)).To(Succeed())
			Expect(env.pool.QueryRow(ctx, "SELECT count(*) FROM tasks").Scan(&tasks)).To(Succeed())
			Expect(users).To(Equal(2))
			Expect(tasks).To(Equal(3))
		})
	})

	Describe("Migrate command", func() {
		It("reports every migration as applied after up", func() {
			output, err := runCLI(ctx, "migrate", "up")
			Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)

			output, err = runCLI(ctx, "migrate", "status")
			Expect(err).NotTo(HaveOccurred(), "migrate status failed: %s", output)
			Expect(output).To(ContainSubstring("[applied] 000001_create_users"))
			Expect(output).To(ContainSubstring("[applied] 000002_create_tasks"))
			Expect(output).NotTo(ContainSubstring("[pending]"))
		})
	})
})
