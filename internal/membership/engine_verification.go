// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Confirm verifies a user's email with the code from the verification link.
// Confirming an already enabled account is a no-op.
func (e *Engine) Confirm(ctx context.Context, userID ulid.ULID, code string) (err error) {
	const op = "confirm"
	defer e.observe(op, time.Now(), &err)

	stored, err := e.verifications.GetByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return newError(CodeVerificationError, "verification code does not match")
		}
		return e.internal(op, err)
	}
	if !stored.Matches(code) {
		return newError(CodeVerificationError, "verification code does not match")
	}

	account, err := e.accounts.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return newError(CodeDoesNotExist, "account does not exist")
		}
		return e.internal(op, err)
	}

	switch account.Status {
	case StatusEnabled:
		return nil
	case StatusUnverified:
	case StatusDeleted:
		return newError(CodeDoesNotExist, "account does not exist")
	default:
		return newError(CodeAccountDisabled, "account is %s", account.Status)
	}

	account.Status = StatusEnabled
	if err := e.accounts.Update(ctx, account); err != nil {
		return e.internal(op, err)
	}
	e.logger.InfoContext(ctx, "email confirmed", "account_id", account.ID.String())
	return nil
}

// Resend emails the current verification link again.
func (e *Engine) Resend(ctx context.Context, email string) (err error) {
	const op = "resend"
	defer e.observe(op, time.Now(), &err)

	if ValidateEmail(email) != nil {
		return newError(CodeInvalidEmail, "invalid email")
	}
	account, err := e.localAccountByEmail(ctx, op, email)
	if err != nil {
		return err
	}
	if account.Status != StatusUnverified {
		return newError(CodeAlreadyVerified, "email address is already verified")
	}

	code, err := e.verifications.GetByUserID(ctx, account.ID)
	if err != nil {
		if isNotFound(err) {
			return newError(CodeDoesNotExist, "verification code does not exist")
		}
		return e.internal(op, err)
	}
	code.SendCount++
	if err := e.verifications.Save(ctx, code); err != nil {
		return e.internal(op, err)
	}

	msg, renderErr := e.cfg.Mail.VerificationMessage(account, code.Code, false)
	e.send(ctx, msg, renderErr)
	return nil
}
