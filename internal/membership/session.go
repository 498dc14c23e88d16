// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionTTL is used when a login does not ask for a specific lifetime.
const DefaultSessionTTL = 24 * time.Hour

// Session is a user's login session. Each user has at most one session row;
// a new login re-tokens it.
type Session struct {
	ID     ulid.ULID
	UserID ulid.ULID
	// Token is only populated on the value returned from a login. It is never persisted.
	Token     string `json:"-"`
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(userID ulid.ULID, tokenHash string, createdAt, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Refresh re-tokens the session in place.
func (s *Session) Refresh(token string, createdAt, expiresAt time.Time) {
	s.Token = token
	s.TokenHash = HashToken(token)
	s.CreatedAt = createdAt
	s.ExpiresAt = expiresAt
}

// Expire ends the session by moving its expiry to the Unix epoch.
func (s *Session) Expire() {
	s.ExpiresAt = time.Unix(0, 0).UTC()
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Save inserts or replaces the session for session.UserID.
	// The stored row's ID is written back into session.
	Save(ctx context.Context, session *Session) error

	// GetByUserID retrieves the session of a user, expired or not.
	GetByUserID(ctx context.Context, userID ulid.ULID) (*Session, error)

	// GetByTokenHash retrieves a session by its token hash, expired or not.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Expire sets the expiry of a session to the Unix epoch.
	Expire(ctx context.Context, id ulid.ULID) error
}
