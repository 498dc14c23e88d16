// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir(t *testing.T) {
	t.Run("xdg config home", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		assert.Equal(t, filepath.Join("/xdg", "membership"), Dir())
	})

	t.Run("falls back to home", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/ada")
		assert.Equal(t, filepath.Join("/home/ada", ".config", "membership"), Dir())
	})
}

func TestResolve(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	assert.Equal(t, "/etc/membership.yaml", Resolve("/etc/membership.yaml"))
	assert.Empty(t, Resolve(""), "no default file yet")

	require.NoError(t, os.MkdirAll(Dir(), 0o700))
	require.NoError(t, os.WriteFile(DefaultPath(), []byte("log:\n  level: debug\n"), 0o600))
	assert.Equal(t, filepath.Join(base, "membership", "config.yaml"), Resolve(""))
}
