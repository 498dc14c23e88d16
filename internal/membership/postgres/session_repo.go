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

// SessionRepository implements membership.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool Pool
}

var _ membership.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Save upserts the session of session.UserID. The user's existing row keeps
// its id, which is written back into session.
func (r *SessionRepository) Save(ctx context.Context, session *membership.Session) error {
	var idStr string
	err := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		RETURNING id
	`,
		session.ID.String(),
		session.UserID.String(),
		session.TokenHash,
		session.CreatedAt,
		session.ExpiresAt,
	).Scan(&idStr)
	if err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "upsert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	id, err := parseID(idStr, "id")
	if err != nil {
		return err
	}
	session.ID = id
	return nil
}

// GetByUserID retrieves the session of a user.
func (r *SessionRepository) GetByUserID(ctx context.Context, userID ulid.ULID) (*membership.Session, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, user_id, token_hash, created_at, expires_at
		FROM sessions
		WHERE user_id = $1
	`, userID.String())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(membership.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return session, nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*membership.Session, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, user_id, token_hash, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(membership.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, nil
}

// Expire sets the expiry of a session to the Unix epoch.
func (r *SessionRepository) Expire(ctx context.Context, id ulid.ULID) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE sessions SET expires_at = $2
		WHERE id = $1
	`, id.String(), time.Unix(0, 0).UTC())
	if err != nil {
		return oops.Code("SESSION_EXPIRE_FAILED").
			With("operation", "expire session").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(membership.ErrNotFound)
	}
	return nil
}

// scanSession scans a single row into a Session. Scan errors are returned
// as-is for the caller to code.
func scanSession(row pgx.Row) (*membership.Session, error) {
	var (
		idStr, userIDStr, tokenHash string
		createdAt, expiresAt        time.Time
	)
	if err := row.Scan(&idStr, &userIDStr, &tokenHash, &createdAt, &expiresAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}

	id, err := parseID(idStr, "id")
	if err != nil {
		return nil, err
	}
	userID, err := parseID(userIDStr, "user_id")
	if err != nil {
		return nil, err
	}
	return &membership.Session{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}
