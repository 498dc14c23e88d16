// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Login authenticates a local account by email and password and returns its
// session with a fresh token. A ttl <= 0 uses the configured session lifetime.
//
// Gates run in this order: input shape, account lookup, source, status,
// lockout, password. Lockout is checked before the password so a locked account
// refuses even the correct password. A successful login leaves FailedAttempts
// untouched.
func (e *Engine) Login(ctx context.Context, email, password string, ttl time.Duration) (session *Session, err error) {
	const op = "login"
	defer e.observe(op, time.Now(), &err)

	if ValidateEmail(email) != nil || ValidatePassword(password) != nil {
		return nil, newError(CodeInvalidEmailOrPassword, "invalid email or password")
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			// Spend the same hashing work as a real mismatch.
			_, _ = e.hasher.Verify(password, e.dummyHash) //nolint:errcheck // timing only
			return nil, newError(CodeInvalidEmailOrPassword, "invalid email or password")
		}
		return nil, e.internal(op, err)
	}

	if err := e.checkLoginAllowed(account); err != nil {
		return nil, err
	}
	if account.IsLockedOut(e.cfg.MaxFailedAttempts) {
		return nil, newError(CodeAccountLocked, "account is locked")
	}

	ok, err := e.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, e.internal(op, err)
	}
	if !ok {
		return nil, e.recordFailure(ctx, account)
	}

	if e.hasher.NeedsUpgrade(account.PasswordHash) {
		e.upgradeHash(ctx, account, password)
	}

	session, err = e.establishSession(ctx, account.ID, ttl)
	if err != nil {
		return nil, e.fail(op, err)
	}
	e.logger.DebugContext(ctx, "account logged in", "account_id", account.ID.String())
	return session, nil
}

// checkLoginAllowed applies the source and status gates of password login.
func (e *Engine) checkLoginAllowed(account *Account) error {
	if !account.IsLocal() {
		return newError(CodeDoesNotExist, "account does not use password login")
	}
	switch account.Status {
	case StatusEnabled:
		return nil
	case StatusUnverified:
		return newError(CodeEmailNotVerified, "email address is not verified")
	default:
		return newError(CodeAccountDisabled, "account is %s", account.Status)
	}
}

func (e *Engine) recordFailure(ctx context.Context, account *Account) error {
	attempts, err := e.accounts.IncrementFailedAttempts(ctx, account.ID)
	if err != nil {
		return e.internal("login", err)
	}
	if attempts == e.cfg.MaxFailedAttempts {
		e.logger.InfoContext(ctx, "account locked after failed logins",
			"account_id", account.ID.String(), "failed_attempts", attempts)
		if e.metrics != nil {
			e.metrics.LockoutsTotal.Inc()
		}
	}
	return newError(CodeInvalidEmailOrPassword, "invalid email or password")
}

// upgradeHash re-hashes the password with current parameters. Failure only
// leaves the old hash in place.
func (e *Engine) upgradeHash(ctx context.Context, account *Account, password string) {
	hash, err := e.hasher.Hash(password)
	if err == nil {
		err = e.accounts.UpdatePassword(ctx, account.ID, hash)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade failed",
			"account_id", account.ID.String(), "error", err)
		return
	}
	account.PasswordHash = hash
}

// establishSession re-tokens the user's session row, creating it on first login.
func (e *Engine) establishSession(ctx context.Context, userID ulid.ULID, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = e.cfg.SessionTTL
	}
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	now := e.now()
	expiresAt := now.Add(ttl)

	session, err := e.sessions.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		session.Refresh(token, now, expiresAt)
	case isNotFound(err):
		session, err = NewSession(userID, HashToken(token), now, expiresAt)
		if err != nil {
			return nil, err
		}
		session.Token = token
	default:
		return nil, err
	}

	if err := e.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// LoginWithFacebook authenticates with a Facebook access token. The first
// login for an unknown email creates an enabled social account.
func (e *Engine) LoginWithFacebook(ctx context.Context, accessToken string, ttl time.Duration) (session *Session, err error) {
	const op = "login_facebook"
	defer e.observe(op, time.Now(), &err)

	if e.social == nil {
		return nil, newError(CodeExternalAuthError, "facebook login is not configured")
	}
	if accessToken == "" {
		return nil, newError(CodeExternalAuthError, "access token is required")
	}

	identity, err := e.social.ExchangeToken(ctx, accessToken)
	if err != nil {
		e.logger.WarnContext(ctx, "facebook token exchange failed", "error", err)
		return nil, newError(CodeExternalAuthError, "facebook token exchange failed")
	}
	if identity == nil || identity.Name == "" || identity.Email == "" {
		return nil, newError(CodeExternalAuthError, "facebook profile is missing name or email")
	}

	account, err := e.accounts.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if account.Status != StatusEnabled && account.Status != StatusUnverified {
			return nil, newError(CodeAccountDisabled, "account is %s", account.Status)
		}
	case isNotFound(err):
		account, err = e.createSocialAccount(ctx, identity)
		if err != nil {
			return nil, e.fail(op, err)
		}
	default:
		return nil, e.internal(op, err)
	}

	session, err = e.establishSession(ctx, account.ID, ttl)
	if err != nil {
		return nil, e.fail(op, err)
	}
	return session, nil
}

func (e *Engine) createSocialAccount(ctx context.Context, identity *SocialIdentity) (*Account, error) {
	if ValidateEmail(identity.Email) != nil {
		return nil, newError(CodeExternalAuthError, "facebook profile email is invalid")
	}
	account, err := NewAccount(identity.Email, identity.Name, SocialPasswordSentinel,
		StatusEnabled, TypeRegularUser, SourceFacebook, "")
	if err != nil {
		return nil, err
	}
	account.CreatedAt = e.now()
	if err := e.accounts.Create(ctx, account); err != nil {
		if isAlreadyExists(err) {
			return nil, newError(CodeAlreadyExists, "account already exists")
		}
		return nil, err
	}
	e.logger.InfoContext(ctx, "social account created",
		"account_id", account.ID.String(), "source", account.Source.String())
	return account, nil
}

// Logout expires the session carrying token. Unknown or already expired tokens
// are not an error.
func (e *Engine) Logout(ctx context.Context, token string) (err error) {
	const op = "logout"
	defer e.observe(op, time.Now(), &err)

	if token == "" {
		return nil
	}
	session, err := e.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return e.internal(op, err)
	}
	if session.IsExpiredAt(e.now()) {
		return nil
	}
	if err := e.sessions.Expire(ctx, session.ID); err != nil {
		return e.internal(op, err)
	}
	return nil
}

// LoggedInUser returns the account behind a valid session token.
func (e *Engine) LoggedInUser(ctx context.Context, token string) (account *Account, err error) {
	const op = "logged_in_user"
	defer e.observe(op, time.Now(), &err)

	if token == "" {
		return nil, newError(CodeDoesNotExist, "no session")
	}
	session, err := e.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if isNotFound(err) {
			return nil, newError(CodeDoesNotExist, "no session")
		}
		return nil, e.internal(op, err)
	}
	if session.IsExpiredAt(e.now()) {
		return nil, newError(CodeDoesNotExist, "session expired")
	}

	account, err = e.accounts.GetByID(ctx, session.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(CodeDoesNotExist, "account does not exist")
		}
		return nil, e.internal(op, err)
	}
	if account.Status == StatusDeleted || account.Status == StatusDisabled {
		return nil, newError(CodeDoesNotExist, "account is %s", account.Status)
	}
	return account, nil
}
