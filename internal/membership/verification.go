// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"crypto/subtle"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// VerificationCode is the email verification code of an account.
// The code is kept in plain form so the same link can be re-sent.
type VerificationCode struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Code      string
	SendCount int
}

// NewVerificationCode creates a verification code with a random value.
func NewVerificationCode(userID ulid.ULID) (*VerificationCode, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("VERIFICATION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	code, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	return &VerificationCode{ID: ulid.Make(), UserID: userID, Code: code}, nil
}

// Matches compares code against the issued value in constant time.
func (v *VerificationCode) Matches(code string) bool {
	if code == "" || v.Code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(v.Code)) == 1
}

// Regenerate issues a new code value and counts the send.
func (v *VerificationCode) Regenerate() error {
	code, err := GenerateToken()
	if err != nil {
		return err
	}
	v.Code = code
	v.SendCount++
	return nil
}

// VerificationCodeRepository manages verification code persistence.
type VerificationCodeRepository interface {
	// Save inserts or replaces the code for code.UserID.
	Save(ctx context.Context, code *VerificationCode) error

	// GetByUserID retrieves the code of a user.
	GetByUserID(ctx context.Context, userID ulid.ULID) (*VerificationCode, error)
}
