// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/taskforge/taskforge/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the TaskForge CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskforge",
		Short: "TaskForge - task management API server",
		Long: `TaskForge serves a REST API for user accounts and their tasks,
with session tokens, avatars and account notifications.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/taskforge/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// configSources collects the config inputs of cmd: the --config file and
// any overridable flags it registered.
func configSources(cmd *cobra.Command) config.Sources {
	return config.Sources{
		File:  configFile,
		Flags: cmd.Flags(),
	}
}
