// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// RegisterRequest describes a new local account.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
	// Source and Type default to SourceLocal and TypeRegularUser when zero.
	Source Source
	Type   AccountType
}

// UpdateRequest describes changes to an account. An empty Password or
// PasswordMask keeps the current password.
type UpdateRequest struct {
	ID       ulid.ULID
	Name     string
	Email    string
	Password string
	Phone    string
}

// Register creates an unverified account and its verification code, then
// emails the verification link.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (account *Account, err error) {
	const op = "register"
	defer e.observe(op, time.Now(), &err)

	if ValidateEmail(req.Email) != nil {
		return nil, newError(CodeInvalidEmail, "invalid email")
	}
	if ValidatePassword(req.Password) != nil {
		return nil, newError(CodePasswordRequirementsNotMet, "password must be at least %d characters", MinPasswordLength)
	}
	if req.Source == SourceUnknown {
		req.Source = SourceLocal
	}
	if req.Type == TypeUnknown {
		req.Type = TypeRegularUser
	}

	if _, err := e.accounts.GetByEmail(ctx, req.Email); err == nil {
		return nil, newError(CodeAlreadyExists, "account already exists")
	} else if !isNotFound(err) {
		return nil, e.internal(op, err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, e.internal(op, err)
	}
	account, err = NewAccount(req.Email, req.Name, hash, StatusUnverified, req.Type, req.Source, req.Phone)
	if err != nil {
		return nil, e.internal(op, err)
	}
	account.CreatedAt = e.now()

	var code *VerificationCode
	err = e.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := e.accounts.Create(ctx, account); err != nil {
			if isAlreadyExists(err) {
				return newError(CodeAlreadyExists, "account already exists")
			}
			return err
		}
		c, err := NewVerificationCode(account.ID)
		if err != nil {
			return err
		}
		code = c
		return e.verifications.Save(ctx, c)
	})
	if err != nil {
		return nil, e.fail(op, err)
	}

	e.logger.InfoContext(ctx, "account registered", "account_id", account.ID.String())
	msg, renderErr := e.cfg.Mail.VerificationMessage(account, code.Code, false)
	e.send(ctx, msg, renderErr)
	return account, nil
}

// Update changes an account's profile. Changing the email returns the account
// to Unverified and issues a new verification code.
func (e *Engine) Update(ctx context.Context, req UpdateRequest) (err error) {
	const op = "update"
	defer e.observe(op, time.Now(), &err)

	if ValidateEmail(req.Email) != nil {
		return newError(CodeInvalidEmail, "invalid email")
	}
	changePassword := req.Password != "" && req.Password != PasswordMask
	if changePassword && ValidatePassword(req.Password) != nil {
		return newError(CodePasswordRequirementsNotMet, "password must be at least %d characters", MinPasswordLength)
	}

	account, err := e.localAccount(ctx, op, req.ID)
	if err != nil {
		return err
	}

	if req.Email != account.Email {
		if _, err := e.accounts.GetByEmail(ctx, req.Email); err == nil {
			return newError(CodeAlreadyExists, "email is used by another account")
		} else if !isNotFound(err) {
			return e.internal(op, err)
		}
		account.Email = req.Email
		account.Status = StatusUnverified
	}
	account.Name = req.Name
	account.Phone = req.Phone
	if changePassword {
		hash, err := e.hasher.Hash(req.Password)
		if err != nil {
			return e.internal(op, err)
		}
		account.PasswordHash = hash
	}

	var code *VerificationCode
	err = e.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := e.accounts.Update(ctx, account); err != nil {
			if isAlreadyExists(err) {
				return newError(CodeAlreadyExists, "email is used by another account")
			}
			return err
		}
		if account.Status != StatusUnverified {
			return nil
		}
		c, err := e.nextVerificationCode(ctx, account.ID)
		if err != nil {
			return err
		}
		code = c
		return e.verifications.Save(ctx, c)
	})
	if err != nil {
		return e.fail(op, err)
	}

	if code != nil {
		msg, renderErr := e.cfg.Mail.VerificationMessage(account, code.Code, true)
		e.send(ctx, msg, renderErr)
	}
	return nil
}

// nextVerificationCode regenerates the user's code, creating it if missing.
func (e *Engine) nextVerificationCode(ctx context.Context, userID ulid.ULID) (*VerificationCode, error) {
	code, err := e.verifications.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		if err := code.Regenerate(); err != nil {
			return nil, err
		}
		return code, nil
	case isNotFound(err):
		code, err = NewVerificationCode(userID)
		if err != nil {
			return nil, err
		}
		code.SendCount = 1
		return code, nil
	default:
		return nil, err
	}
}

// Details returns the public profile of a verified local account.
func (e *Engine) Details(ctx context.Context, id ulid.ULID) (details *AccountDetails, err error) {
	const op = "details"
	defer e.observe(op, time.Now(), &err)

	account, err := e.localAccount(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if account.Status == StatusUnverified {
		return nil, newError(CodeEmailNotVerified, "email address is not verified")
	}
	return account.Details(), nil
}

// Delete soft-deletes an account and frees its email for reuse.
// Deleting an already deleted account succeeds without changes.
func (e *Engine) Delete(ctx context.Context, id ulid.ULID) (err error) {
	const op = "delete"
	defer e.observe(op, time.Now(), &err)

	account, err := e.accounts.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return newError(CodeDoesNotExist, "account does not exist")
		}
		return e.internal(op, err)
	}
	if account.Status == StatusDeleted {
		return nil
	}

	marker, err := generateDeleteMarker()
	if err != nil {
		return e.internal(op, err)
	}
	account.MarkDeleted(marker)
	if err := e.accounts.Update(ctx, account); err != nil {
		return e.internal(op, err)
	}
	e.logger.InfoContext(ctx, "account deleted", "account_id", account.ID.String())
	return nil
}

// localAccount loads an account that may be managed by password.
// Missing, deleted and social accounts are DoesNotExist.
func (e *Engine) localAccount(ctx context.Context, op string, id ulid.ULID) (*Account, error) {
	account, err := e.accounts.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(CodeDoesNotExist, "account does not exist")
		}
		return nil, e.internal(op, err)
	}
	if !account.IsLocal() || account.Status == StatusDeleted {
		return nil, newError(CodeDoesNotExist, "account does not exist")
	}
	return account, nil
}

// localAccountByEmail is localAccount keyed by email.
func (e *Engine) localAccountByEmail(ctx context.Context, op, email string) (*Account, error) {
	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(CodeDoesNotExist, "account does not exist")
		}
		return nil, e.internal(op, err)
	}
	if !account.IsLocal() || account.Status == StatusDeleted {
		return nil, newError(CodeDoesNotExist, "account does not exist")
	}
	return account, nil
}
