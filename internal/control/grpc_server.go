// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package control provides the gRPC control plane used by operators and
// orchestrators to check on a running server.
package control

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name the API server reports under.
const ServiceName = "taskforge"

// GRPCServer serves grpc.health.v1.Health for one named service.
type GRPCServer struct {
	service string
	logger  *slog.Logger
	health  *health.Server

	mu         sync.Mutex
	listener   net.Listener
	grpcServer *grpc.Server
}

// NewGRPCServer creates a control server reporting on service.
func NewGRPCServer(service string, logger *slog.Logger) (*GRPCServer, error) {
	if service == "" {
		return nil, oops.Errorf("service name cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := health.NewServer()
	h.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	return &GRPCServer{service: service, logger: logger, health: h}, nil
}

// Start listens on addr. The returned channel receives the exit error of
// the gRPC server exactly once.
func (s *GRPCServer) Start(addr string) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil, oops.Errorf("control server is already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, oops.With("addr", addr).Wrap(err)
	}
	s.listener = listener

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.health)
	s.grpcServer = srv

	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(listener)
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("control gRPC server error", "service", s.service, "error", err)
		}
		errCh <- err
	}()

	s.logger.Info("control server started", "addr", listener.Addr().String())
	return errCh, nil
}

// SetServing flips the reported status of the service.
func (s *GRPCServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(s.service, status)
}

// Stop reports NOT_SERVING to watchers and stops the server. If ctx ends
// before in-flight RPCs finish they are cancelled.
func (s *GRPCServer) Stop(ctx context.Context) error {
	s.health.Shutdown()

	s.mu.Lock()
	srv := s.grpcServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
		<-done
	}
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *GRPCServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// CheckHealth asks the control server at addr for the status of service.
func CheckHealth(ctx context.Context, addr, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, oops.Code("CONTROL_DIAL_FAILED").With("addr", addr).Wrap(err)
	}
	defer func() { _ = conn.Close() }()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, oops.Code("CONTROL_CHECK_FAILED").
			With("addr", addr).
			With("service", service).
			Wrap(err)
	}
	return resp.GetStatus(), nil
}
