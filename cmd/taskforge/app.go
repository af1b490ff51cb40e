// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/notify"
	"github.com/taskforge/taskforge/internal/observability"
	"github.com/taskforge/taskforge/internal/task"
	"github.com/taskforge/taskforge/internal/web"
)

// app is the wired service graph shared by serve and seed.
type app struct {
	accounts   *auth.Accounts
	auth       *auth.Service
	tasks      *task.Service
	dispatcher *notify.Dispatcher
	handler    http.Handler
}

// buildApp wires the domain services over st. A nil metrics gets a private
// registry.
func buildApp(cfg config.Config, st *Storage, metrics *observability.Metrics, logger *slog.Logger) (*app, error) {
	if metrics == nil {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	accounts, err := auth.NewAccounts(st.Users, st.Tasks, auth.NewBcryptHasher(cfg.Auth.BcryptCost), logger)
	if err != nil {
		return nil, oops.With("operation", "create accounts").Wrap(err)
	}
	issuer, err := auth.NewJWTIssuer(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, oops.With("operation", "create token issuer").Wrap(err)
	}

	sender, err := newSender(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}
	dispatcher, err := notify.NewDispatcher(sender, logger,
		notify.WithFrom(cfg.Mail.From),
		notify.WithSendTimeout(cfg.Mail.Timeout),
		notify.WithRecorder(metrics),
	)
	if err != nil {
		return nil, oops.With("operation", "create notifier").Wrap(err)
	}

	svc, err := auth.NewAuthServiceWithLogger(accounts, issuer, dispatcher, logger)
	if err != nil {
		return nil, oops.With("operation", "create auth service").Wrap(err)
	}
	authn, err := auth.NewAuthenticator(issuer, accounts)
	if err != nil {
		return nil, oops.With("operation", "create authenticator").Wrap(err)
	}
	tasks, err := task.NewService(st.Tasks, accounts)
	if err != nil {
		return nil, oops.With("operation", "create task service").Wrap(err)
	}

	handler, err := web.NewRouter(web.Deps{
		Auth:           svc,
		Authenticator:  authn,
		Tasks:          tasks,
		Metrics:        metrics,
		Logger:         logger,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		AvatarMaxBytes: cfg.Avatar.MaxBytes,
	})
	if err != nil {
		return nil, oops.With("operation", "create router").Wrap(err)
	}

	return &app{
		accounts:   accounts,
		auth:       svc,
		tasks:      tasks,
		dispatcher: dispatcher,
		handler:    handler,
	}, nil
}

// newSender delivers mail through SendGrid when a key is configured and
// logs it otherwise.
func newSender(cfg config.MailConfig, logger *slog.Logger) (notify.Sender, error) {
	if cfg.APIKey == "" {
		logger.Info("mail API key not set; notifications will be logged")
		return notify.NewLogSender(logger), nil
	}
	sender, err := notify.NewSendGridSender(&http.Client{Timeout: cfg.Timeout}, cfg.APIURL, cfg.APIKey)
	if err != nil {
		return nil, oops.With("operation", "create mail sender").Wrap(err)
	}
	return sender, nil
}

// close drains pending notifications.
func (a *app) close(ctx context.Context) {
	if err := a.dispatcher.Close(ctx); err != nil {
		slog.Warn("notifications still pending at shutdown", "error", err)
	}
}
