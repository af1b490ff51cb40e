// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/control"
)

// statusTimeout bounds each probe.
const statusTimeout = 2 * time.Second

// EndpointStatus holds the result of probing one endpoint.
type EndpointStatus struct {
	Endpoint string `json:"endpoint"`
	Addr     string `json:"addr,omitempty"`
	Healthy  bool   `json:"healthy"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// statusProbes queries a running server. Tests replace the fields.
type statusProbes struct {
	control   func(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error)
	readiness func(ctx context.Context, addr string) (string, error)
}

func defaultProbes() statusProbes {
	return statusProbes{
		control: func(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error) {
			return control.CheckHealth(ctx, addr, control.ServiceName)
		},
		readiness: probeReadiness,
	}
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running TaskForge server",
		Long: `Query the gRPC health service and the readiness probe of a running
server and report whether it is healthy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := config.Read(configSources(cmd))
			if err != nil {
				return err
			}
			return runStatus(cmd, cfg, appCfg, defaultProbes())
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command. It fails when any endpoint is unhealthy.
func runStatus(cmd *cobra.Command, cfg *statusConfig, appCfg config.Config, probes statusProbes) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	statuses := []EndpointStatus{
		queryControl(ctx, appCfg.Control.Addr, probes),
		queryReadiness(ctx, appCfg.Metrics.Addr, probes),
	}

	if cfg.jsonOutput {
		output, err := formatStatusJSON(statuses)
		if err != nil {
			return err
		}
		cmd.Println(output)
	} else {
		cmd.Print(formatStatusTable(statuses))
	}

	for _, s := range statuses {
		if !s.Healthy && s.Status != statusDisabled {
			return oops.Code("SERVER_UNHEALTHY").With("endpoint", s.Endpoint).Errorf("%s is not healthy", s.Endpoint)
		}
	}
	return nil
}

const statusDisabled = "disabled"

func queryControl(ctx context.Context, addr string, probes statusProbes) EndpointStatus {
	status := EndpointStatus{Endpoint: "control", Addr: addr}
	if addr == "" {
		status.Status = statusDisabled
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	serving, err := probes.control(ctx, dialAddr(addr))
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Status = strings.ToLower(serving.String())
	status.Healthy = serving == healthpb.HealthCheckResponse_SERVING
	return status
}

func queryReadiness(ctx context.Context, addr string, probes statusProbes) EndpointStatus {
	status := EndpointStatus{Endpoint: "readiness", Addr: addr}
	if addr == "" {
		status.Status = statusDisabled
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	result, err := probes.readiness(ctx, dialAddr(addr))
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Status = result
	status.Healthy = result == "ok"
	return status
}

// probeReadiness calls the readiness endpoint of the observability server.
func probeReadiness(ctx context.Context, addr string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/healthz/readiness", nil)
	if err != nil {
		return "", oops.With("addr", addr).Wrap(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", oops.With("addr", addr).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		return "ok", nil
	}
	return "not ready", nil
}

// dialAddr turns a listen address such as ":9100" into one a client can dial.
func dialAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "127.0.0.1" + addr
	}
	return addr
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(statuses []EndpointStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ENDPOINT\tADDR\tSTATUS\tDETAIL")
	_, _ = fmt.Fprintln(w, "--------\t----\t------\t------")

	for _, s := range statuses {
		addr := s.Addr
		if addr == "" {
			addr = "-"
		}
		switch {
		case s.Error != "":
			_, _ = fmt.Fprintf(w, "%s\t%s\tdown\t%s\n", s.Endpoint, addr, s.Error)
		case s.Status == statusDisabled:
			_, _ = fmt.Fprintf(w, "%s\t%s\tdisabled\t-\n", s.Endpoint, addr)
		default:
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t-\n", s.Endpoint, addr, s.Status)
		}
	}

	_ = w.Flush()
	return sb.String()
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(statuses []EndpointStatus) (string, error) {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return "", oops.With("operation", "marshal status").Wrap(err)
	}
	return string(data), nil
}
