// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks of the membership collaborators.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/membership/internal/membership"
)

// TestingT is the subset of *testing.T the constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(t TestingT, m *mock.Mock) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// MockAccountRepository mocks membership.AccountRepository.
type MockAccountRepository struct{ mock.Mock }

// NewMockAccountRepository creates a mock that asserts its expectations on cleanup.
func NewMockAccountRepository(t TestingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *membership.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*membership.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*membership.Account)
	return account, args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*membership.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*membership.Account)
	return account, args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *membership.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockAccountRepository) IncrementFailedAttempts(ctx context.Context, id ulid.ULID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

// MockSessionRepository mocks membership.SessionRepository.
type MockSessionRepository struct{ mock.Mock }

// NewMockSessionRepository creates a mock that asserts its expectations on cleanup.
func NewMockSessionRepository(t TestingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockSessionRepository) Save(ctx context.Context, session *membership.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetByUserID(ctx context.Context, userID ulid.ULID) (*membership.Session, error) {
	args := m.Called(ctx, userID)
	session, _ := args.Get(0).(*membership.Session)
	return session, args.Error(1)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*membership.Session, error) {
	args := m.Called(ctx, tokenHash)
	session, _ := args.Get(0).(*membership.Session)
	return session, args.Error(1)
}

func (m *MockSessionRepository) Expire(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// MockVerificationCodeRepository mocks membership.VerificationCodeRepository.
type MockVerificationCodeRepository struct{ mock.Mock }

// NewMockVerificationCodeRepository creates a mock that asserts its expectations on cleanup.
func NewMockVerificationCodeRepository(t TestingT) *MockVerificationCodeRepository {
	m := &MockVerificationCodeRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockVerificationCodeRepository) Save(ctx context.Context, code *membership.VerificationCode) error {
	return m.Called(ctx, code).Error(0)
}

func (m *MockVerificationCodeRepository) GetByUserID(ctx context.Context, userID ulid.ULID) (*membership.VerificationCode, error) {
	args := m.Called(ctx, userID)
	code, _ := args.Get(0).(*membership.VerificationCode)
	return code, args.Error(1)
}

// MockPasswordResetCodeRepository mocks membership.PasswordResetCodeRepository.
type MockPasswordResetCodeRepository struct{ mock.Mock }

// NewMockPasswordResetCodeRepository creates a mock that asserts its expectations on cleanup.
func NewMockPasswordResetCodeRepository(t TestingT) *MockPasswordResetCodeRepository {
	m := &MockPasswordResetCodeRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockPasswordResetCodeRepository) Save(ctx context.Context, code *membership.PasswordResetCode) error {
	return m.Called(ctx, code).Error(0)
}

func (m *MockPasswordResetCodeRepository) GetByUserID(ctx context.Context, userID ulid.ULID) (*membership.PasswordResetCode, error) {
	args := m.Called(ctx, userID)
	code, _ := args.Get(0).(*membership.PasswordResetCode)
	return code, args.Error(1)
}

// MockTransactor mocks membership.Transactor. Unless configured otherwise,
// tests usually make it run fn directly:
//
//	tx.On("InTransaction", mock.Anything, mock.Anything).Return(nil).Run(...)
type MockTransactor struct{ mock.Mock }

// NewMockTransactor creates a mock that asserts its expectations on cleanup.
func NewMockTransactor(t TestingT) *MockTransactor {
	m := &MockTransactor{}
	register(t, &m.Mock)
	return m
}

func (m *MockTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Called(ctx, fn).Error(0)
}

// PassthroughTransactor runs fn without a transaction.
type PassthroughTransactor struct{}

func (PassthroughTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockPasswordHasher mocks membership.PasswordHasher.
type MockPasswordHasher struct{ mock.Mock }

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	register(t, &m.Mock)
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockMailer mocks membership.Mailer.
type MockMailer struct{ mock.Mock }

// NewMockMailer creates a mock that asserts its expectations on cleanup.
func NewMockMailer(t TestingT) *MockMailer {
	m := &MockMailer{}
	register(t, &m.Mock)
	return m
}

func (m *MockMailer) Send(ctx context.Context, msg membership.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// MockSocialIdentityProvider mocks membership.SocialIdentityProvider.
type MockSocialIdentityProvider struct{ mock.Mock }

// NewMockSocialIdentityProvider creates a mock that asserts its expectations on cleanup.
func NewMockSocialIdentityProvider(t TestingT) *MockSocialIdentityProvider {
	m := &MockSocialIdentityProvider{}
	register(t, &m.Mock)
	return m
}

func (m *MockSocialIdentityProvider) ExchangeToken(ctx context.Context, accessToken string) (*membership.SocialIdentity, error) {
	args := m.Called(ctx, accessToken)
	identity, _ := args.Get(0).(*membership.SocialIdentity)
	return identity, args.Error(1)
}

var (
	_ membership.AccountRepository           = (*MockAccountRepository)(nil)
	_ membership.SessionRepository           = (*MockSessionRepository)(nil)
	_ membership.VerificationCodeRepository  = (*MockVerificationCodeRepository)(nil)
	_ membership.PasswordResetCodeRepository = (*MockPasswordResetCodeRepository)(nil)
	_ membership.Transactor                  = (*MockTransactor)(nil)
	_ membership.Transactor                  = PassthroughTransactor{}
	_ membership.PasswordHasher              = (*MockPasswordHasher)(nil)
	_ membership.Mailer                      = (*MockMailer)(nil)
	_ membership.SocialIdentityProvider      = (*MockSocialIdentityProvider)(nil)
)
