// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Credential constants.
const (
	// MinPasswordLength is counted in characters, not bytes.
	MinPasswordLength = 8

	// SocialPasswordSentinel is stored as the password hash of social-only accounts.
	SocialPasswordSentinel = "FACEBOOK"

	// PasswordMask is what clients echo back when the password field was not edited.
	PasswordMask = "********"
)

// Account is a member account.
type Account struct {
	ID             ulid.ULID
	Email          string
	Name           string
	PasswordHash   string
	Status         Status
	Type           AccountType
	Source         Source
	Phone          string
	FailedAttempts int
	CreatedAt      time.Time
}

// AccountDetails is the public projection of an account.
type AccountDetails struct {
	ID    ulid.ULID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

// NewAccount creates a validated Account with a fresh ID.
func NewAccount(email, name, passwordHash string, status Status, typ AccountType, source Source, phone string) (*Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_PASSWORD_HASH").Errorf("password hash cannot be empty")
	}
	if !status.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_STATUS").With("status", int(status)).Errorf("unknown status")
	}
	if !typ.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_TYPE").With("type", int(typ)).Errorf("unknown account type")
	}
	if !source.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_SOURCE").With("source", int(source)).Errorf("unknown source")
	}
	return &Account{
		ID:           ulid.Make(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Status:       status,
		Type:         typ,
		Source:       source,
		Phone:        phone,
		CreatedAt:    time.Now(),
	}, nil
}

// IsLocal reports whether the account authenticates by password.
func (a *Account) IsLocal() bool {
	return a.Source == SourceLocal
}

// IsLockedOut reports whether failed logins reached the lockout threshold.
func (a *Account) IsLockedOut(maxFailedAttempts int) bool {
	return a.FailedAttempts >= maxFailedAttempts
}

// Details returns the public projection of the account.
func (a *Account) Details() *AccountDetails {
	return &AccountDetails{ID: a.ID, Name: a.Name, Email: a.Email, Phone: a.Phone}
}

// MarkDeleted soft-deletes the account. The email is rewritten so that the
// original address can be registered again.
func (a *Account) MarkDeleted(marker string) {
	a.Email = "D_" + marker + "_" + strings.ReplaceAll(a.Email, "@", "#")
	a.Status = StatusDeleted
}

// ValidateEmail checks that email is a bare RFC 5322 address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return oops.Code("ACCOUNT_INVALID_EMAIL").Wrap(err)
	}
	if addr.Name != "" || addr.Address != email {
		return oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email must be a bare address")
	}
	return nil
}

// ValidatePassword checks the password length requirement.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account.
	// Returns ErrAlreadyExists if a non-deleted account has the same email.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by exact email.
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Update stores every mutable field except FailedAttempts.
	Update(ctx context.Context, account *Account) error

	// UpdatePassword updates only the password hash for an account.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// IncrementFailedAttempts atomically adds one to the counter and returns the new value.
	IncrementFailedAttempts(ctx context.Context, id ulid.ULID) (int, error)
}
