// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memstore provides in-memory membership repositories for tests and
// local development. Transactions roll back by restoring a snapshot, so a
// transaction excludes every other writer until it ends. Reads are not
// isolated and may see uncommitted writes.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/membership/internal/membership"
)

// Store holds every membership table in memory.
type Store struct {
	mu            sync.RWMutex
	txMu          sync.Mutex // held by an open transaction or a lone write
	accounts      map[ulid.ULID]membership.Account
	sessions      map[ulid.ULID]membership.Session // by user
	verifications map[ulid.ULID]membership.VerificationCode
	resets        map[ulid.ULID]membership.PasswordResetCode
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		accounts:      make(map[ulid.ULID]membership.Account),
		sessions:      make(map[ulid.ULID]membership.Session),
		verifications: make(map[ulid.ULID]membership.VerificationCode),
		resets:        make(map[ulid.ULID]membership.PasswordResetCode),
	}
}

// Accounts returns the account repository.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// Sessions returns the session repository.
func (s *Store) Sessions() *SessionRepository { return &SessionRepository{s: s} }

// Verifications returns the verification code repository.
func (s *Store) Verifications() *VerificationCodeRepository {
	return &VerificationCodeRepository{s: s}
}

// Resets returns the password reset code repository.
func (s *Store) Resets() *PasswordResetCodeRepository {
	return &PasswordResetCodeRepository{s: s}
}

// Dependencies returns engine dependencies backed by this store.
// Callers still need to set the hasher and the optional collaborators.
func (s *Store) Dependencies() membership.Dependencies {
	return membership.Dependencies{
		Accounts:      s.Accounts(),
		Sessions:      s.Sessions(),
		Verifications: s.Verifications(),
		Resets:        s.Resets(),
		Transactor:    s,
	}
}

type snapshot struct {
	accounts      map[ulid.ULID]membership.Account
	sessions      map[ulid.ULID]membership.Session
	verifications map[ulid.ULID]membership.VerificationCode
	resets        map[ulid.ULID]membership.PasswordResetCode
}

type txKey struct{}

// inTransaction reports whether ctx belongs to a transaction on s.
func (s *Store) inTransaction(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// writeLock holds off writers outside the open transaction, if any, until
// it commits or rolls back. Writes made by the transaction itself pass.
func (s *Store) writeLock(ctx context.Context) func() {
	if s.inTransaction(ctx) {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

// InTransaction runs fn and restores the previous contents if it fails.
// Nested calls join the outer transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTransaction(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, s)

	s.mu.RLock()
	snap := snapshot{
		accounts:      maps.Clone(s.accounts),
		sessions:      maps.Clone(s.sessions),
		verifications: maps.Clone(s.verifications),
		resets:        maps.Clone(s.resets),
	}
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.accounts = snap.accounts
		s.sessions = snap.sessions
		s.verifications = snap.verifications
		s.resets = snap.resets
		s.mu.Unlock()
		return err
	}
	return nil
}

var _ membership.Transactor = (*Store)(nil)
