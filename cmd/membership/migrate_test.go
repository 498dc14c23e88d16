// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/membership/internal/config"
	"github.com/holomush/membership/pkg/errutil"
)

type fakeMigrator struct {
	version uint
	dirty   bool
	total   uint
	forced  *int
	steps   []int
	upErr   error
	closed  bool
}

func (m *fakeMigrator) Up() error {
	if m.upErr != nil {
		return m.upErr
	}
	m.version = m.total
	return nil
}

func (m *fakeMigrator) Down() error {
	m.version = 0
	return nil
}

func (m *fakeMigrator) Steps(n int) error {
	m.steps = append(m.steps, n)
	m.version = uint(max(0, int(m.version)+n))
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *fakeMigrator) Force(version int) error {
	m.forced = &version
	m.version = uint(version)
	m.dirty = false
	return nil
}

func (m *fakeMigrator) PendingMigrations() ([]uint, error) {
	var out []uint
	for v := m.version + 1; v <= m.total; v++ {
		out = append(out, v)
	}
	return out, nil
}

func (m *fakeMigrator) AppliedMigrations() ([]uint, error) {
	var out []uint
	for v := uint(1); v <= m.version; v++ {
		out = append(out, v)
	}
	return out, nil
}

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

// useMigrator swaps migratorFactory for the test and records the URL it
// was asked for.
func useMigrator(t *testing.T, m *fakeMigrator) *string {
	t.Helper()
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvSalt, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configFile = ""

	var gotURL string
	prev := migratorFactory
	migratorFactory = func(url string) (Migrator, error) {
		gotURL = url
		return m, nil
	}
	t.Cleanup(func() { migratorFactory = prev })
	return &gotURL
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "negative parses", input: "-1", wantVersion: -1},
		{name: "non-numeric", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Config
		wantURL   string
		wantField string
	}{
		{name: "configured", cfg: config.Config{Database: config.DatabaseConfig{URL: "postgres://db/m"}}, wantURL: "postgres://db/m"},
		{name: "missing", cfg: config.Config{}, wantField: "database.url"},
		{name: "in memory", cfg: config.Config{Database: config.DatabaseConfig{URL: "postgres://db/m", InMemory: true}}, wantField: "database.in_memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := databaseURL(tt.cfg)
			if tt.wantField != "" {
				errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
				errutil.AssertErrorContext(t, err, "field", tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
		})
	}
}

func TestMigrateCommand_NoDatabaseURL(t *testing.T) {
	useMigrator(t, &fakeMigrator{})

	_, err := runCLI(t, "migrate")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Contains(t, err.Error(), config.EnvDatabaseURL)
}

func TestMigrateCommand_Up(t *testing.T) {
	m := &fakeMigrator{version: 1, total: 3}
	gotURL := useMigrator(t, m)

	out, err := runCLI(t, "migrate", "up", "--database-url", "postgres://db/membership")
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/membership", *gotURL)
	assert.Contains(t, out, "Applying 2 migration(s)")
	assert.Contains(t, out, "version 3")
	assert.True(t, m.closed)
}

func TestMigrateCommand_UpToDate(t *testing.T) {
	m := &fakeMigrator{version: 3, total: 3}
	useMigrator(t, m)
	t.Setenv(config.EnvDatabaseURL, "postgres://env/membership")

	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")
}

func TestMigrateCommand_UpFailureClosesMigrator(t *testing.T) {
	m := &fakeMigrator{total: 3, upErr: oops.Code("MIGRATION_UP_FAILED").Wrap(errors.New("syntax error"))}
	useMigrator(t, m)

	_, err := runCLI(t, "migrate", "--database-url=postgres://db/m")
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
	assert.True(t, m.closed)
}

func TestMigrateCommand_Down(t *testing.T) {
	t.Run("steps", func(t *testing.T) {
		m := &fakeMigrator{version: 3, total: 3}
		useMigrator(t, m)

		out, err := runCLI(t, "migrate", "down", "--steps", "2", "--database-url=postgres://db/m")
		require.NoError(t, err)
		assert.Equal(t, []int{-2}, m.steps)
		assert.Contains(t, out, "version 1")
	})

	t.Run("all", func(t *testing.T) {
		m := &fakeMigrator{version: 3, total: 3}
		useMigrator(t, m)

		out, err := runCLI(t, "migrate", "down", "--all", "--database-url=postgres://db/m")
		require.NoError(t, err)
		assert.Empty(t, m.steps)
		assert.Contains(t, out, "version 0")
	})

	t.Run("zero steps", func(t *testing.T) {
		useMigrator(t, &fakeMigrator{})

		_, err := runCLI(t, "migrate", "down", "--steps", "0", "--database-url=postgres://db/m")
		errutil.AssertErrorCode(t, err, "INVALID_STEPS")
	})
}

func TestMigrateCommand_Status(t *testing.T) {
	useMigrator(t, &fakeMigrator{version: 1, total: 3, dirty: true})

	out, err := runCLI(t, "migrate", "status", "--database-url=postgres://db/m")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 1 (dirty")
	assert.Contains(t, out, "Applied: 1\n  000001_accounts\n")
	assert.Contains(t, out, "Pending: 2\n  000002_sessions\n  000003_codes\n")
}

func TestMigrateCommand_Force(t *testing.T) {
	m := &fakeMigrator{version: 2, total: 3, dirty: true}
	useMigrator(t, m)

	out, err := runCLI(t, "migrate", "force", "1", "--database-url=postgres://db/m")
	require.NoError(t, err)
	require.NotNil(t, m.forced)
	assert.Equal(t, 1, *m.forced)
	assert.False(t, m.dirty)
	assert.Contains(t, out, "Forced version 1")

	_, err = runCLI(t, "migrate", "force", "x", "--database-url=postgres://db/m")
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestFormatMigrationStatus_UnknownVersion(t *testing.T) {
	out := formatMigrationStatus(0, false, nil, []uint{99})
	assert.Equal(t, "Current version: 0\nApplied: 0\nPending: 1\n  000099\n", out)
}
