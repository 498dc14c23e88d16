// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/membership/internal/membership"
	"github.com/holomush/membership/internal/membership/memstore"
)

// Parallel wrong-password logins race on the failed attempt counter. The
// increment is a single repository call, so none of them may be lost. Run
// with -race.
func TestEngine_ConcurrentFailedLoginsAreAllCounted(t *testing.T) {
	const attempts = 20
	ctx := context.Background()

	store := memstore.New()
	deps := store.Dependencies()
	deps.Hasher = newTestHasher(t)
	deps.Mailer = &recordingMailer{}
	engine, err := membership.NewEngine(deps, membership.Config{MaxFailedAttempts: 100})
	require.NoError(t, err)
	h := &harness{engine: engine, store: store, mailer: deps.Mailer.(*recordingMailer)}
	account := h.registerConfirmed(t, "race@example.com")

	codes := make([]membership.Code, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, loginErr := engine.Login(ctx, "race@example.com", "wrong-password", 0)
			codes[i] = membership.CodeOf(loginErr)
		}()
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, membership.CodeInvalidEmailOrPassword, code, "login %d", i)
	}
	assert.Equal(t, attempts, h.account(t, account).FailedAttempts)
}

// Once the counter crosses the limit mid-race, late logins see the lockout,
// but every failure that got past the gate is still counted.
func TestEngine_ConcurrentFailedLoginsReachLockout(t *testing.T) {
	const attempts = 12
	ctx := context.Background()

	store := memstore.New()
	deps := store.Dependencies()
	deps.Hasher = newTestHasher(t)
	deps.Mailer = &recordingMailer{}
	engine, err := membership.NewEngine(deps, membership.Config{MaxFailedAttempts: 3})
	require.NoError(t, err)
	h := &harness{engine: engine, store: store, mailer: deps.Mailer.(*recordingMailer)}
	account := h.registerConfirmed(t, "race-lock@example.com")

	var (
		mu      sync.Mutex
		invalid int
		wg      sync.WaitGroup
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, loginErr := engine.Login(ctx, "race-lock@example.com", "wrong-password", 0)
			code := membership.CodeOf(loginErr)
			assert.Contains(t, []membership.Code{membership.CodeInvalidEmailOrPassword, membership.CodeAccountLocked}, code)
			if code == membership.CodeInvalidEmailOrPassword {
				mu.Lock()
				invalid++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	failed := h.account(t, account).FailedAttempts
	assert.Equal(t, invalid, failed)
	assert.GreaterOrEqual(t, failed, 3)

	_, err = engine.Login(ctx, "race-lock@example.com", testPassword, 0)
	assertCode(t, membership.CodeAccountLocked, err)
}
