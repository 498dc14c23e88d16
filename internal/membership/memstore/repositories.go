// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memstore

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/membership/internal/membership"
)

// AccountRepository implements membership.AccountRepository.
type AccountRepository struct{ s *Store }

var _ membership.AccountRepository = (*AccountRepository)(nil)

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *membership.Account) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").Wrap(err)
	}
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[account.ID]; ok {
		return oops.Code("ACCOUNT_ALREADY_EXISTS").With("id", account.ID.String()).Wrap(membership.ErrAlreadyExists)
	}
	if r.emailTakenLocked(account.Email, account.ID) {
		return oops.Code("ACCOUNT_ALREADY_EXISTS").With("email", account.Email).Wrap(membership.ErrAlreadyExists)
	}
	r.s.accounts[account.ID] = *account
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*membership.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").Wrap(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(membership.ErrNotFound)
	}
	return &account, nil
}

// GetByEmail retrieves an account by exact email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*membership.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").Wrap(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, account := range r.s.accounts {
		if account.Email == email {
			return &account, nil
		}
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(membership.ErrNotFound)
}

// Update stores every mutable field except FailedAttempts.
func (r *AccountRepository) Update(ctx context.Context, account *membership.Account) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").Wrap(err)
	}
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.accounts[account.ID]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", account.ID.String()).Wrap(membership.ErrNotFound)
	}
	if account.Status != membership.StatusDeleted && r.emailTakenLocked(account.Email, account.ID) {
		return oops.Code("ACCOUNT_ALREADY_EXISTS").With("email", account.Email).Wrap(membership.ErrAlreadyExists)
	}
	updated := *account
	updated.FailedAttempts = stored.FailedAttempts
	updated.CreatedAt = stored.CreatedAt
	r.s.accounts[account.ID] = updated
	return nil
}

// UpdatePassword updates only the password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").Wrap(err)
	}
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(membership.ErrNotFound)
	}
	account.PasswordHash = passwordHash
	r.s.accounts[id] = account
	return nil
}

// IncrementFailedAttempts adds one to the counter and returns the new value.
func (r *AccountRepository) IncrementFailedAttempts(ctx context.Context, id ulid.ULID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, oops.Code("ACCOUNT_UPDATE_FAILED").Wrap(err)
	}
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return 0, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(membership.ErrNotFound)
	}
	account.FailedAttempts++
	r.s.accounts[id] = account
	return account.FailedAttempts, nil
}

// emailTakenLocked reports whether a live account other than id uses email.
// Callers hold r.s.mu.
func (r *AccountRepository) emailTakenLocked(email string, id ulid.ULID) bool {
	for otherID, other := range r.s.accounts {
		if otherID != id && other.Status != membership.StatusDeleted && other.Email == email {
			return true
		}
	}
	return false
}

// SessionRepository implements membership.SessionRepository.
type SessionRepository struct{ s *Store }

var _ membership.SessionRepository = (*SessionRepository)(nil)

// Save inserts or replaces the session of session.UserID.
func (r *SessionRepository) Save(ctx context.Context, session *membership.Session) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").Wrap(err)
	}
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.sessions[session.UserID]; ok {
		session.ID = existing.ID
	}
	stored := *session
	stored.Token = ""
	r.s.sessions[session.UserID] = stored
	return nil
}

// GetByUserID retrieves the session of a user.
func (r *SessionRepository) GetByUserID(ctx context.Context, userID ulid.ULID) (*membership.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").Wrap(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	session, ok := r.s.sessions[userID]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").With("user_id", userID.String()).Wrap(membership.ErrNotFound)
	}
	return &session, nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*membership.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").Wrap(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, session := range r.s.sessions {
		if session.TokenHash == tokenHash {
			return &session, nil
		}
	}
	return nil, oops.Code("SESSION_NOT_FOUND").Wrap(membership.ErrNotFound)
}

// Expire sets the session's expiry to the Unix epoch.
func (r *SessionRepository) Expire(ctx context.Context, id ulid.ULID) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("SESSION_EXPIRE_FAILED").Wrap(err)
	}
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for userID, session := range r.s.sessions {
		if session.ID == id {
			session.Expire()
			r.s.sessions[userID] = session
			return nil
		}
	}
	return oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(membership.ErrNotFound)
}

// VerificationCodeRepository implements membership.VerificationCodeRepository.
type VerificationCodeRepository struct{ s *Store }

var _ membership.VerificationCodeRepository = (*VerificationCodeRepository)(nil)

// Save inserts or replaces the code of code.UserID.
func (r *VerificationCodeRepository) Save(ctx context.Context, code *membership.VerificationCode) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("VERIFICATION_SAVE_FAILED").Wrap(err)
	}
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.verifications[code.UserID]; ok {
		code.ID = existing.ID
	}
	r.s.verifications[code.UserID] = *code
	return nil
}

// GetByUserID retrieves the code of a user.
func (r *VerificationCodeRepository) GetByUserID(ctx context.Context, userID ulid.ULID) (*membership.VerificationCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("VERIFICATION_QUERY_FAILED").Wrap(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	code, ok := r.s.verifications[userID]
	if !ok {
		return nil, oops.Code("VERIFICATION_NOT_FOUND").With("user_id", userID.String()).Wrap(membership.ErrNotFound)
	}
	return &code, nil
}

// PasswordResetCodeRepository implements membership.PasswordResetCodeRepository.
type PasswordResetCodeRepository struct{ s *Store }

var _ membership.PasswordResetCodeRepository = (*PasswordResetCodeRepository)(nil)

// Save inserts or replaces the code of code.UserID. The plaintext code is not kept.
func (r *PasswordResetCodeRepository) Save(ctx context.Context, code *membership.PasswordResetCode) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("RESET_SAVE_FAILED").Wrap(err)
	}
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.resets[code.UserID]; ok {
		code.ID = existing.ID
	}
	stored := *code
	stored.Code = ""
	r.s.resets[code.UserID] = stored
	return nil
}

// GetByUserID retrieves the reset code of a user.
func (r *PasswordResetCodeRepository) GetByUserID(ctx context.Context, userID ulid.ULID) (*membership.PasswordResetCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("RESET_QUERY_FAILED").Wrap(err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	code, ok := r.s.resets[userID]
	if !ok {
		return nil, oops.Code("RESET_NOT_FOUND").With("user_id", userID.String()).Wrap(membership.ErrNotFound)
	}
	return &code, nil
}
