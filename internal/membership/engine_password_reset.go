// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Forgot issues a password reset code and emails the reset link. While a
// previously issued code is still valid no new code is sent.
func (e *Engine) Forgot(ctx context.Context, email string) (err error) {
	const op = "forgot"
	defer e.observe(op, time.Now(), &err)

	if ValidateEmail(email) != nil {
		return newError(CodeInvalidEmail, "invalid email")
	}
	account, err := e.localAccountByEmail(ctx, op, email)
	if err != nil {
		return err
	}

	now := e.now()
	expiresAt := now.Add(e.cfg.ResetCodeTTL)

	reset, err := e.resets.GetByUserID(ctx, account.ID)
	switch {
	case err == nil:
		if !reset.IsExpiredAt(now) {
			return newError(CodeAlreadyExists, "a reset code was already sent")
		}
		if err := reset.Refresh(now, expiresAt); err != nil {
			return e.internal(op, err)
		}
	case isNotFound(err):
		reset, err = NewPasswordResetCode(account.ID, now, expiresAt)
		if err != nil {
			return e.internal(op, err)
		}
	default:
		return e.internal(op, err)
	}

	if err := e.resets.Save(ctx, reset); err != nil {
		return e.internal(op, err)
	}

	msg, renderErr := e.cfg.Mail.ResetMessage(account, reset.Code)
	e.send(ctx, msg, renderErr)
	return nil
}

// ResetPassword sets a new password using a code issued by Forgot. The code is
// single use. Failed login attempts are not reset.
func (e *Engine) ResetPassword(ctx context.Context, userID ulid.ULID, code, newPassword string) (err error) {
	const op = "reset_password"
	defer e.observe(op, time.Now(), &err)

	if ValidatePassword(newPassword) != nil {
		return newError(CodePasswordRequirementsNotMet, "password must be at least %d characters", MinPasswordLength)
	}

	reset, err := e.resets.GetByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return newError(CodeVerificationError, "reset code is invalid")
		}
		return e.internal(op, err)
	}
	if reset.IsExpiredAt(e.now()) || !reset.Matches(code) {
		return newError(CodeVerificationError, "reset code is invalid")
	}

	account, err := e.localAccount(ctx, op, userID)
	if err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return e.internal(op, err)
	}

	reset.Invalidate()
	err = e.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := e.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
			return err
		}
		return e.resets.Save(ctx, reset)
	})
	if err != nil {
		return e.fail(op, err)
	}
	e.logger.InfoContext(ctx, "password reset", "account_id", account.ID.String())
	return nil
}
