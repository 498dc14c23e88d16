// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/membership/pkg/errutil"
)

// DefaultMaxFailedAttempts is the lockout threshold when none is configured.
const DefaultMaxFailedAttempts = 3

// Config holds engine tuning.
type Config struct {
	MaxFailedAttempts int
	SessionTTL        time.Duration
	ResetCodeTTL      time.Duration
	Mail              MailSettings
}

// Dependencies are the collaborators of an Engine.
// Mailer, Social, Metrics, Logger and Clock are optional.
type Dependencies struct {
	Accounts      AccountRepository
	Sessions      SessionRepository
	Verifications VerificationCodeRepository
	Resets        PasswordResetCodeRepository
	Transactor    Transactor
	Hasher        PasswordHasher
	Mailer        Mailer
	Social        SocialIdentityProvider
	Metrics       *Metrics
	Logger        *slog.Logger
	Clock         Clock
}

// Engine implements the membership operations.
type Engine struct {
	accounts      AccountRepository
	sessions      SessionRepository
	verifications VerificationCodeRepository
	resets        PasswordResetCodeRepository
	tx            Transactor
	hasher        PasswordHasher
	mailer        Mailer
	social        SocialIdentityProvider
	metrics       *Metrics
	logger        *slog.Logger
	now           Clock
	cfg           Config

	// dummyHash is verified against when no account matches a login, so that
	// unknown emails cost the same as wrong passwords.
	dummyHash string
}

// NewEngine creates an Engine. Zero config values take their defaults.
func NewEngine(deps Dependencies, cfg Config) (*Engine, error) {
	switch {
	case deps.Accounts == nil:
		return nil, oops.Code("ENGINE_INVALID_DEPENDENCIES").Errorf("accounts repository is required")
	case deps.Sessions == nil:
		return nil, oops.Code("ENGINE_INVALID_DEPENDENCIES").Errorf("sessions repository is required")
	case deps.Verifications == nil:
		return nil, oops.Code("ENGINE_INVALID_DEPENDENCIES").Errorf("verification code repository is required")
	case deps.Resets == nil:
		return nil, oops.Code("ENGINE_INVALID_DEPENDENCIES").Errorf("password reset code repository is required")
	case deps.Transactor == nil:
		return nil, oops.Code("ENGINE_INVALID_DEPENDENCIES").Errorf("transactor is required")
	case deps.Hasher == nil:
		return nil, oops.Code("ENGINE_INVALID_DEPENDENCIES").Errorf("password hasher is required")
	}
	if cfg.MaxFailedAttempts < 0 || cfg.SessionTTL < 0 || cfg.ResetCodeTTL < 0 {
		return nil, oops.Code("ENGINE_INVALID_CONFIG").
			With("max_failed_attempts", cfg.MaxFailedAttempts).
			With("session_ttl", cfg.SessionTTL).
			With("reset_code_ttl", cfg.ResetCodeTTL).
			Errorf("engine limits cannot be negative")
	}
	if cfg.MaxFailedAttempts == 0 {
		cfg.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.ResetCodeTTL == 0 {
		cfg.ResetCodeTTL = DefaultResetCodeTTL
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	dummy, err := deps.Hasher.Hash("membership-dummy-password")
	if err != nil {
		return nil, oops.Code("ENGINE_INIT_FAILED").With("operation", "hash dummy password").Wrap(err)
	}

	return &Engine{
		accounts:      deps.Accounts,
		sessions:      deps.Sessions,
		verifications: deps.Verifications,
		resets:        deps.Resets,
		tx:            deps.Transactor,
		hasher:        deps.Hasher,
		mailer:        deps.Mailer,
		social:        deps.Social,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           clock,
		cfg:           cfg,
		dummyHash:     dummy,
	}, nil
}

// Config returns the effective engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// internal logs err with its full context and returns a bare InternalError.
// The original error is not wrapped so that its code cannot leak through CodeOf.
func (e *Engine) internal(op string, err error) error {
	errutil.LogError(e.logger, "membership operation failed", oops.With("operation", op).Wrap(err))
	return oops.Code(CodeInternalError.String()).
		With("operation", op).
		Errorf("internal error during %s", op)
}

// fail passes engine-coded errors through and converts anything else to InternalError.
func (e *Engine) fail(op string, err error) error {
	if _, ok := engineCode(err); ok {
		return err
	}
	return e.internal(op, err)
}

// observe records the outcome of an operation. Call it deferred with a pointer
// to the operation's named error result.
func (e *Engine) observe(op string, start time.Time, errp *error) {
	if e.metrics == nil {
		return
	}
	e.metrics.OperationsTotal.WithLabelValues(op, CodeOf(*errp).String()).Inc()
	e.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// send delivers msg. Delivery failures are logged and never returned.
func (e *Engine) send(ctx context.Context, msg Message, renderErr error) {
	if renderErr != nil {
		errutil.LogError(e.logger, "rendering membership email failed", renderErr)
		return
	}
	if e.mailer == nil {
		e.logger.WarnContext(ctx, "no mailer configured, email dropped", "subject", msg.Subject)
		return
	}
	if err := e.mailer.Send(ctx, msg); err != nil {
		errutil.LogError(e.logger, "sending membership email failed",
			oops.With("subject", msg.Subject).Wrap(err))
	}
}

// isNotFound reports whether a repository error means the row is missing.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// isAlreadyExists reports whether a repository error is a uniqueness violation.
func isAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
