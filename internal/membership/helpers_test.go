// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/membership/internal/membership"
	"github.com/holomush/membership/internal/membership/memstore"
)

const (
	testPepper   = "test-pepper-value"
	testPassword = "correct-horse"
	verifyURL    = "https://example.test/verify"
	resetURL     = "https://example.test/reset"
)

// fastParams keeps argon2 cheap in tests.
var fastParams = membership.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

func newTestHasher(t *testing.T) *membership.Argon2idHasher {
	t.Helper()
	h, err := membership.NewArgon2idHasherWithParams(testPepper, fastParams)
	require.NoError(t, err)
	return h
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []membership.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg membership.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) Messages() []membership.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]membership.Message(nil), m.sent...)
}

func (m *recordingMailer) Last(t *testing.T) membership.Message {
	t.Helper()
	msgs := m.Messages()
	require.NotEmpty(t, msgs, "expected an email to be sent")
	return msgs[len(msgs)-1]
}

type harness struct {
	engine *membership.Engine
	store  *memstore.Store
	mailer *recordingMailer
	clock  *fakeClock
	hasher *membership.Argon2idHasher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memstore.New()
	mailer := &recordingMailer{}
	clock := newFakeClock()
	hasher := newTestHasher(t)

	deps := store.Dependencies()
	deps.Hasher = hasher
	deps.Mailer = mailer
	deps.Clock = clock.Now

	engine, err := membership.NewEngine(deps, testConfig())
	require.NoError(t, err)
	return &harness{engine: engine, store: store, mailer: mailer, clock: clock, hasher: hasher}
}

func testConfig() membership.Config {
	return membership.Config{
		Mail: membership.MailSettings{
			AppName:      "Acme",
			SupportEmail: "support@example.test",
			SupportName:  "Acme Support",
			VerifyURL:    verifyURL,
			ResetURL:     resetURL,
		},
	}
}

// register creates an unverified local account.
func (h *harness) register(t *testing.T, email string) *membership.Account {
	t.Helper()
	account, err := h.engine.Register(context.Background(), membership.RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: testPassword,
		Phone:    "555-0100",
	})
	require.NoError(t, err)
	return account
}

// registerConfirmed creates an enabled local account.
func (h *harness) registerConfirmed(t *testing.T, email string) *membership.Account {
	t.Helper()
	account := h.register(t, email)
	code := h.verificationCode(t, account)
	require.NoError(t, h.engine.Confirm(context.Background(), account.ID, code.Code))
	return h.account(t, account)
}

func (h *harness) verificationCode(t *testing.T, account *membership.Account) *membership.VerificationCode {
	t.Helper()
	code, err := h.store.Verifications().GetByUserID(context.Background(), account.ID)
	require.NoError(t, err)
	return code
}

func (h *harness) account(t *testing.T, account *membership.Account) *membership.Account {
	t.Helper()
	stored, err := h.store.Accounts().GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	return stored
}

func assertCode(t *testing.T, want membership.Code, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, membership.CodeOf(err), "unexpected error: %v", err)
}
