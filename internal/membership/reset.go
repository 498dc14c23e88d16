// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultResetCodeTTL is how long a password reset code stays usable.
const DefaultResetCodeTTL = 3 * time.Hour

// PasswordResetCode is a one-time code that authorizes a password change.
// Only the hash of the code is persisted.
type PasswordResetCode struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Code      string `json:"-"`
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewPasswordResetCode creates a reset code valid from now until expiresAt.
func NewPasswordResetCode(userID ulid.ULID, now, expiresAt time.Time) (*PasswordResetCode, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if !expiresAt.After(now) {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry must be after creation time")
	}
	r := &PasswordResetCode{ID: ulid.Make(), UserID: userID}
	if err := r.Refresh(now, expiresAt); err != nil {
		return nil, err
	}
	return r, nil
}

// IsExpiredAt returns true if the code is no longer usable at t.
func (r *PasswordResetCode) IsExpiredAt(t time.Time) bool {
	return !r.ExpiresAt.After(t)
}

// Matches compares a plaintext code with the stored hash in constant time.
func (r *PasswordResetCode) Matches(code string) bool {
	return tokenMatchesHash(code, r.CodeHash)
}

// Refresh issues a new code value with a new validity window.
func (r *PasswordResetCode) Refresh(now, expiresAt time.Time) error {
	code, err := GenerateToken()
	if err != nil {
		return err
	}
	r.Code = code
	r.CodeHash = HashToken(code)
	r.CreatedAt = now
	r.ExpiresAt = expiresAt
	return nil
}

// Invalidate marks the code as used.
func (r *PasswordResetCode) Invalidate() {
	r.ExpiresAt = time.Unix(0, 0).UTC()
}

// PasswordResetCodeRepository manages password reset code persistence.
type PasswordResetCodeRepository interface {
	// Save inserts or replaces the code for code.UserID.
	Save(ctx context.Context, code *PasswordResetCode) error

	// GetByUserID retrieves the code of a user, expired or not.
	GetByUserID(ctx context.Context, userID ulid.ULID) (*PasswordResetCode, error)
}
