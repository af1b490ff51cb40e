// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StorageOpener opens the configured persistence backend.
	// Default: openStorage
	StorageOpener storageOpener

	// WebServerFactory creates the API server.
	// Default: web.NewServer
	WebServerFactory func(addr string, handler http.Handler) Server

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ControlServerFactory creates the gRPC health server.
	// Default: control.NewGRPCServer
	ControlServerFactory func(logger *slog.Logger) (ControlServer, error)
}

// storageOpener opens a persistence backend.
type storageOpener func(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Storage, error)

// Server is a listener started and stopped by serve.
type Server interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Server
	Metrics() *observability.Metrics
}

// ControlServer interface wraps the methods used from control.GRPCServer.
type ControlServer interface {
	Start(addr string) (<-chan error, error)
	SetServing(serving bool)
	Stop(ctx context.Context) error
	Addr() string
}
