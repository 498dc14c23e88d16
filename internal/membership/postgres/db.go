// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the membership repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/membership/internal/membership"
)

// querier abstracts query execution for both the pool and pgx.Tx so that
// repository methods work within or outside of transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the subset of *pgxpool.Pool used by this package.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type Pool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// txKey is the context key under which Transactor stores the active pgx.Tx.
type txKey struct{}

// conn returns the transaction carried by ctx, or pool when there is none.
func conn(ctx context.Context, pool Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// parseID parses a ULID column.
func parseID(value, field string) (ulid.ULID, error) {
	id, err := ulid.Parse(value)
	if err != nil {
		return ulid.ULID{}, oops.Code("INVALID_ID").
			With("operation", "parse "+field).
			With(field, value).
			Wrap(err)
	}
	return id, nil
}

// Dependencies returns the storage half of membership.Dependencies backed
// by pool.
func Dependencies(pool Pool) membership.Dependencies {
	return membership.Dependencies{
		Accounts:      NewAccountRepository(pool),
		Sessions:      NewSessionRepository(pool),
		Verifications: NewVerificationCodeRepository(pool),
		Resets:        NewPasswordResetCodeRepository(pool),
		Transactor:    NewTransactor(pool),
	}
}
