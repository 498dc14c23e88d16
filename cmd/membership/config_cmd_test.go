// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/holomush/membership/internal/config"
	"github.com/holomush/membership/pkg/errutil"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "membership.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigValidate(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvSalt, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(func() { configFile = "" })

	t.Run("valid", func(t *testing.T) {
		path := writeConfigFile(t, "database:\n  in_memory: true\nsecurity:\n  salt: long-enough-salt\n")
		out, err := runCLI(t, "config", "validate", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration is valid")
	})

	t.Run("invalid", func(t *testing.T) {
		path := writeConfigFile(t, "database:\n  in_memory: true\n")
		_, err := runCLI(t, "config", "validate", "--config", path)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		errutil.AssertErrorContext(t, err, "field", "security.salt")
	})

	t.Run("schema violation", func(t *testing.T) {
		path := writeConfigFile(t, "security:\n  pepper: nope\n")
		_, err := runCLI(t, "config", "validate", "--config", path)
		errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_VIOLATION")
	})
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "postgres://app:hunter2@db:5432/membership")
	t.Setenv(config.EnvSalt, "super-secret-salt")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(func() { configFile = "" })

	path := writeConfigFile(t, `
mail:
  smtp:
    host: smtp.example.com
    password: smtp-secret
facebook:
  app_id: "123"
  app_secret: fb-secret
`)
	out, err := runCLI(t, "config", "show", "--config", path)
	require.NoError(t, err)

	for _, secret := range []string{"hunter2", "super-secret-salt", "smtp-secret", "fb-secret"} {
		assert.NotContains(t, out, secret)
	}
	assert.Contains(t, out, "smtp.example.com")

	// the output is itself a valid configuration file
	require.NoError(t, config.ValidateDocument([]byte(out)))

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, redacted, doc["security"]["salt"])
	assert.Equal(t, "24h0m0s", doc["security"]["session_ttl"])
}

func TestConfigSchema(t *testing.T) {
	out, err := runCLI(t, "config", "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "", redactURL(""))
	assert.Equal(t, "postgres://app:xxxxx@db/m", redactURL("postgres://app:pw@db/m"))
	assert.Equal(t, "postgres://db/m", redactURL("postgres://db/m"))
	assert.Equal(t, redacted, redactURL("postgres://db:bad port/m"))
}

func TestConfigValidate_UsesXDGDefaultFile(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvSalt, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configFile = ""

	require.NoError(t, os.MkdirAll(config.Dir(), 0o700))
	require.NoError(t, os.WriteFile(config.DefaultPath(),
		[]byte("database:\n  in_memory: true\nsecurity:\n  salt: from-the-xdg-file\n"), 0o600))

	out, err := runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "in_memory: true")
}
