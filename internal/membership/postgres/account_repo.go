// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/membership/internal/membership"
)

const accountColumns = `id, email, name, password_hash, status, type, source, phone, failed_attempts, created_at`

// AccountRepository implements membership.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool Pool
}

var _ membership.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *membership.Account) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		account.ID.String(),
		account.Email,
		account.Name,
		account.PasswordHash,
		int(account.Status),
		int(account.Type),
		int(account.Source),
		account.Phone,
		account.FailedAttempts,
		account.CreatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_ALREADY_EXISTS").
			With("email", account.Email).
			Wrap(membership.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("id", account.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*membership.Account, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(membership.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// GetByEmail retrieves an account by exact email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*membership.Account, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(membership.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return account, nil
}

// Update stores every mutable field except failed_attempts, which only
// IncrementFailedAttempts changes.
func (r *AccountRepository) Update(ctx context.Context, account *membership.Account) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET
			email = $2,
			name = $3,
			password_hash = $4,
			status = $5,
			type = $6,
			source = $7,
			phone = $8
		WHERE id = $1
	`,
		account.ID.String(),
		account.Email,
		account.Name,
		account.PasswordHash,
		int(account.Status),
		int(account.Type),
		int(account.Source),
		account.Phone,
	)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_ALREADY_EXISTS").
			With("email", account.Email).
			Wrap(membership.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", account.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", account.ID.String()).
			Wrap(membership.ErrNotFound)
	}
	return nil
}

// UpdatePassword updates only the password hash for an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET password_hash = $2
		WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(membership.ErrNotFound)
	}
	return nil
}

// IncrementFailedAttempts adds one to the counter in a single statement and
// returns the new value.
func (r *AccountRepository) IncrementFailedAttempts(ctx context.Context, id ulid.ULID) (int, error) {
	var attempts int
	err := conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE accounts SET failed_attempts = failed_attempts + 1
		WHERE id = $1
		RETURNING failed_attempts
	`, id.String()).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(membership.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("ACCOUNT_INCREMENT_FAILED").
			With("operation", "increment failed attempts").
			With("id", id.String()).
			Wrap(err)
	}
	return attempts, nil
}

// scanAccount scans a single row into an Account. Scan errors, including
// pgx.ErrNoRows, are returned as-is for the caller to code.
func scanAccount(row pgx.Row) (*membership.Account, error) {
	var (
		idStr          string
		email          string
		name           string
		passwordHash   string
		status         int
		typ            int
		source         int
		phone          string
		failedAttempts int
		createdAt      time.Time
	)

	err := row.Scan(
		&idStr,
		&email,
		&name,
		&passwordHash,
		&status,
		&typ,
		&source,
		&phone,
		&failedAttempts,
		&createdAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}

	id, err := parseID(idStr, "id")
	if err != nil {
		return nil, err
	}

	return &membership.Account{
		ID:             id,
		Email:          email,
		Name:           name,
		PasswordHash:   passwordHash,
		Status:         membership.Status(status),
		Type:           membership.AccountType(typ),
		Source:         membership.Source(source),
		Phone:          phone,
		FailedAttempts: failedAttempts,
		CreatedAt:      createdAt,
	}, nil
}
