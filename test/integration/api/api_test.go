// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

//go:build integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

type session struct {
	User  map[string]any `json:"user"`
	Token string         `json:"token"`
}

func call(method, path, token string, body any) (*http.Response, []byte) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, rdr)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, data
}

func register(name, email, password string) session {
	resp, data := call(http.MethodPost, "/users", "", map[string]any{
		"name": name, "email": email, "password": password,
	})
	Expect(resp.StatusCode).To(Equal(http.StatusCreated), string(data))
	var s session
	Expect(json.Unmarshal(data, &s)).To(Succeed())
	return s
}

var _ = Describe("Account API", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx, env.pool)
	})

	Describe("registration", func() {
		It("stores a bcrypt hash and never returns private fields", func() {
			s := register("Maria", "Maria@Example.com", "Pass73ifti")
			Expect(s.Token).NotTo(BeEmpty())
			Expect(s.User).To(HaveKeyWithValue("email", "maria@example.com"))
			Expect(s.User).NotTo(HaveKey("password"))
			Expect(s.User).NotTo(HaveKey("tokens"))
			Expect(s.User).NotTo(HaveKey("avatar"))

			var hash string
			var tokens []string
			err := env.pool.QueryRow(ctx,
				"SELECT password_hash, tokens FROM users WHERE email = $1", "maria@example.com",
			).Scan(&hash, &tokens)
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(HavePrefix("$2a$08$"))
			Expect(hash).NotTo(ContainSubstring("Pass73ifti"))
			Expect(tokens).To(ConsistOf(s.Token))
		})

		It("rejects a duplicate email", func() {
			register("Maria", "maria@example.com", "Pass73ifti")
			resp, _ := call(http.MethodPost, "/users", "", map[string]any{
				"name": "Other", "email": "maria@example.com", "password": "Another99x",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("login", func() {
		It("answers a wrong password and an unknown email identically", func() {
			register("Maria", "maria@example.com", "Pass73ifti")

			wrong, wrongBody := call(http.MethodPost, "/users/login", "", map[string]any{
				"email": "maria@example.com", "password": "WrongPass99",
			})
			unknown, unknownBody := call(http.MethodPost, "/users/login", "", map[string]any{
				"email": "nobody@example.com", "password": "Pass73ifti",
			})
			Expect(wrong.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(unknown.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(wrongBody).To(MatchJSON(unknownBody))
		})

		It("adds a session token per login", func() {
			first := register("Maria", "maria@example.com", "Pass73ifti")
			resp, data := call(http.MethodPost, "/users/login", "", map[string]any{
				"email": "maria@example.com", "password": "Pass73ifti",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK), string(data))
			var second session
			Expect(json.Unmarshal(data, &second)).To(Succeed())

			var tokens []string
			err := env.pool.QueryRow(ctx,
				"SELECT tokens FROM users WHERE email = $1", "maria@example.com",
			).Scan(&tokens)
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens).To(ConsistOf(first.Token, second.Token))
		})
	})

	Describe("sessions", func() {
		It("revokes only the presented token on logout", func() {
			first := register("Maria", "maria@example.com", "Pass73ifti")
			_, data := call(http.MethodPost, "/users/login", "", map[string]any{
				"email": "maria@example.com", "password": "Pass73ifti",
			})
			var second session
			Expect(json.Unmarshal(data, &second)).To(Succeed())

			resp, _ := call(http.MethodPost, "/users/logout", first.Token, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, _ = call(http.MethodGet, "/users/me", first.Token, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			resp, _ = call(http.MethodGet, "/users/me", second.Token, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("revokes every token on logoutAll", func() {
			s := register("Maria", "maria@example.com", "Pass73ifti")

			resp, _ := call(http.MethodPost, "/users/logoutAll", s.Token, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, _ = call(http.MethodGet, "/users/me", s.Token, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("profile updates", func() {
		It("rehashes a changed password and keeps the hash otherwise", func() {
			s := register("Maria", "maria@example.com", "Pass73ifti")
			hashOf := func() string {
				var hash string
				Expect(env.pool.QueryRow(ctx,
					"SELECT password_hash FROM users WHERE email = $1", "maria@example.com",
				).Scan(&hash)).To(Succeed())
				return hash
			}
			before := hashOf()

			resp, data := call(http.MethodPatch, "/users/me", s.Token, map[string]any{"age": 30})
			Expect(resp.StatusCode).To(Equal(http.StatusOK), string(data))
			Expect(hashOf()).To(Equal(before))

			resp, data = call(http.MethodPatch, "/users/me", s.Token, map[string]any{"password": "Changed88x"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK), string(data))
			Expect(hashOf()).NotTo(Equal(before))

			resp, _ = call(http.MethodPost, "/users/login", "", map[string]any{
				"email": "maria@example.com", "password": "Changed88x",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("account removal", func() {
		It("deletes the owner's tasks and leaves other owners alone", func() {
			maria := register("Maria", "maria@example.com", "Pass73ifti")
			ifti := register("Ifti", "ifti@example.com", "iftiPass73ifti")
			mariaID := ulid.MustParse(maria.User["_id"].(string))
			iftiID := ulid.MustParse(ifti.User["_id"].(string))

			_, err := env.tasks.Create(ctx, mariaID, "First task", false)
			Expect(err).NotTo(HaveOccurred())
			_, err = env.tasks.Create(ctx, mariaID, "Second task", true)
			Expect(err).NotTo(HaveOccurred())
			_, err = env.tasks.Create(ctx, iftiID, "Third task", false)
			Expect(err).NotTo(HaveOccurred())

			resp, data := call(http.MethodGet, "/users/me/tasks", maria.Token, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var listed []map[string]any
			Expect(json.Unmarshal(data, &listed)).To(Succeed())
			Expect(listed).To(HaveLen(2))

			resp, data = call(http.MethodDelete, "/users/me", maria.Token, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK), string(data))

			var users, mariaTasks, iftiTasks int
			Expect(env.pool.QueryRow(ctx, "SELECT count(*) FROM users").Scan(&users)).To(Succeed())
			Expect(env.pool.QueryRow(ctx,
				"SELECT count(*) FROM tasks WHERE owner_id = $1", mariaID.String(),
			).Scan(&mariaTasks)).To(Succeed())
			Expect(env.pool.QueryRow(ctx,
				"SELECT count(*) FROM tasks WHERE owner_id = $1", iftiID.String(),
			).Scan(&iftiTasks)).To(Succeed())
			Expect(users).To(Equal(1))
			Expect(mariaTasks).To(BeZero())
			Expect(iftiTasks).To(Equal(1))

			resp, _ = call(http.MethodGet, "/users/me", maria.Token, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})
