// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package web exposes the account and task services over HTTP.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/task"
)

// DefaultAvatarMaxBytes bounds an avatar upload when Deps leaves it unset.
const DefaultAvatarMaxBytes = 1_000_000

// Recorder receives request and authentication outcomes.
// observability.Metrics satisfies it.
type Recorder interface {
	ObserveHTTPRequest(route, method string, status int, elapsed time.Duration)
	RecordAuthEvent(event string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (nopRecorder) RecordAuthEvent(string, error) {}

// Deps holds the collaborators of the HTTP API.
type Deps struct {
	Auth           *auth.Service
	Authenticator  *auth.Authenticator
	Tasks          *task.Service
	Metrics        Recorder
	Logger         *slog.Logger
	CORSOrigins    []string
	AvatarMaxBytes int
}

type api struct {
	auth           *auth.Service
	authn          *auth.Authenticator
	tasks          *task.Service
	metrics        Recorder
	logger         *slog.Logger
	avatarMaxBytes int
}

// NewRouter builds the HTTP handler for the API.
func NewRouter(deps Deps) (http.Handler, error) {
	if deps.Auth == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if deps.Authenticator == nil {
		return nil, oops.Errorf("authenticator is required")
	}
	if deps.Tasks == nil {
		return nil, oops.Errorf("task service is required")
	}

	a := &api{
		auth:           deps.Auth,
		authn:          deps.Authenticator,
		tasks:          deps.Tasks,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		avatarMaxBytes: deps.AvatarMaxBytes,
	}
	if a.metrics == nil {
		a.metrics = nopRecorder{}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.avatarMaxBytes <= 0 {
		a.avatarMaxBytes = DefaultAvatarMaxBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.recoverer)
	r.Use(corsHandler(deps.CORSOrigins))
	r.Use(a.observe)

	r.Post("/users", a.handleRegister)
	r.Post("/users/login", a.handleLogin)
	r.Get("/users/{id}/avatar", a.handleGetAvatar)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Post("/users/logout", a.handleLogout)
		r.Post("/users/logoutAll", a.handleLogoutAll)
		r.Get("/users/me", a.handleProfile)
		r.Patch("/users/me", a.handleUpdate)
		r.Delete("/users/me", a.handleDelete)
		r.Post("/users/me/avatar", a.handleSetAvatar)
		r.Delete("/users/me/avatar", a.handleClearAvatar)
		r.Get("/users/me/tasks", a.handleListTasks)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	return r, nil
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})
}
