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

// VerificationCodeRepository implements membership.VerificationCodeRepository using PostgreSQL.
type VerificationCodeRepository struct {
	pool Pool
}

var _ membership.VerificationCodeRepository = (*VerificationCodeRepository)(nil)

// NewVerificationCodeRepository creates a new VerificationCodeRepository.
func NewVerificationCodeRepository(pool Pool) *VerificationCodeRepository {
	return &VerificationCodeRepository{pool: pool}
}

// Save upserts the code of code.UserID.
func (r *VerificationCodeRepository) Save(ctx context.Context, code *membership.VerificationCode) error {
	var idStr string
	err := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO verification_codes (id, user_id, code, send_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			code = EXCLUDED.code,
			send_count = EXCLUDED.send_count
		RETURNING id
	`, code.ID.String(), code.UserID.String(), code.Code, code.SendCount).Scan(&idStr)
	if err != nil {
		return oops.Code("VERIFICATION_SAVE_FAILED").
			With("operation", "upsert verification code").
			With("user_id", code.UserID.String()).
			Wrap(err)
	}
	id, err := parseID(idStr, "id")
	if err != nil {
		return err
	}
	code.ID = id
	return nil
}

// GetByUserID retrieves the code of a user.
func (r *VerificationCodeRepository) GetByUserID(ctx context.Context, userID ulid.ULID) (*membership.VerificationCode, error) {
	var (
		idStr, code string
		sendCount   int
	)
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, code, send_count
		FROM verification_codes
		WHERE user_id = $1
	`, userID.String()).Scan(&idStr, &code, &sendCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("VERIFICATION_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(membership.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("VERIFICATION_GET_FAILED").
			With("operation", "get verification code").
			With("user_id", userID.String()).
			Wrap(err)
	}
	id, err := parseID(idStr, "id")
	if err != nil {
		return nil, err
	}
	return &membership.VerificationCode{ID: id, UserID: userID, Code: code, SendCount: sendCount}, nil
}

// PasswordResetCodeRepository implements membership.PasswordResetCodeRepository using PostgreSQL.
type PasswordResetCodeRepository struct {
	pool Pool
}

var _ membership.PasswordResetCodeRepository = (*PasswordResetCodeRepository)(nil)

// NewPasswordResetCodeRepository creates a new PasswordResetCodeRepository.
func NewPasswordResetCodeRepository(pool Pool) *PasswordResetCodeRepository {
	return &PasswordResetCodeRepository{pool: pool}
}

// Save upserts the code of code.UserID. Only the code hash is stored.
func (r *PasswordResetCodeRepository) Save(ctx context.Context, code *membership.PasswordResetCode) error {
	var idStr string
	err := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO password_reset_codes (id, user_id, code_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		RETURNING id
	`, code.ID.String(), code.UserID.String(), code.CodeHash, code.CreatedAt, code.ExpiresAt).Scan(&idStr)
	if err != nil {
		return oops.Code("RESET_SAVE_FAILED").
			With("operation", "upsert password reset code").
			With("user_id", code.UserID.String()).
			Wrap(err)
	}
	id, err := parseID(idStr, "id")
	if err != nil {
		return err
	}
	code.ID = id
	return nil
}

// GetByUserID retrieves the reset code of a user, expired or not.
func (r *PasswordResetCodeRepository) GetByUserID(ctx context.Context, userID ulid.ULID) (*membership.PasswordResetCode, error) {
	var (
		idStr, codeHash      string
		createdAt, expiresAt time.Time
	)
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, code_hash, created_at, expires_at
		FROM password_reset_codes
		WHERE user_id = $1
	`, userID.String()).Scan(&idStr, &codeHash, &createdAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(membership.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_GET_FAILED").
			With("operation", "get password reset code").
			With("user_id", userID.String()).
			Wrap(err)
	}
	id, err := parseID(idStr, "id")
	if err != nil {
		return nil, err
	}
	return &membership.PasswordResetCode{
		ID:        id,
		UserID:    userID,
		CodeHash:  codeHash,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}
