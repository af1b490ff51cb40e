// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package xdg provides XDG Base Directory paths for taskforge.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "taskforge"

// ConfigDir returns $XDG_CONFIG_HOME/taskforge, falling back to
// ~/.config/taskforge.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
