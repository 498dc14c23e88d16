// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/membership/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("ACCOUNT_NOT_FOUND").
		With("user_id", "01HX").
		Errorf("no such account")

	errutil.LogError(logger, "operation failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "operation failed", logEntry["msg"])
	assert.Equal(t, "ACCOUNT_NOT_FOUND", logEntry["code"])
	assert.Equal(t, map[string]any{"user_id": "01HX"}, logEntry["context"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := errors.New("standard error")

	errutil.LogError(logger, "operation failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "standard error")
	assert.NotContains(t, logEntry, "code")
}

func TestLogErrorContext_PassesContextToHandler(t *testing.T) {
	type key struct{}
	var seen any
	handler := &ctxCapture{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil), key: key{}, seen: &seen}

	ctx := context.WithValue(context.Background(), key{}, "request-1")
	errutil.LogErrorContext(ctx, slog.New(handler), "failed", errors.New("boom"))

	assert.Equal(t, "request-1", seen)
}

type ctxCapture struct {
	slog.Handler
	key  any
	seen *any
}

func (h *ctxCapture) Handle(ctx context.Context, r slog.Record) error {
	*h.seen = ctx.Value(h.key)
	return h.Handler.Handle(ctx, r)
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("x"), ""},
		{"oops without code", oops.Errorf("x"), ""},
		{"coded", oops.Code("SESSION_NOT_FOUND").Errorf("x"), "SESSION_NOT_FOUND"},
		{"deepest code wins", oops.Code("OUTER").Wrap(oops.Code("INNER").Errorf("x")), "INNER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errutil.Code(tt.err))
		})
	}
}
