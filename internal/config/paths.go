// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"path/filepath"
)

const appName = "membership"

// Dir returns the XDG config directory for the service.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultPath is where Resolve looks when no file is named.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Resolve returns explicit when set. Otherwise it returns DefaultPath if
// that file exists, or "" to run on defaults alone.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if info, err := os.Stat(DefaultPath()); err == nil && !info.IsDir() {
		return DefaultPath()
	}
	return ""
}
