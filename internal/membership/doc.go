// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package membership implements account registration, login, sessions, email
// verification and password reset.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewAccount - creates an Account with a validated email and password hash
//   - NewSession - creates a Session for a user with an expiry
//   - NewVerificationCode - creates the email verification code for a user
//   - NewPasswordResetCode - creates a password reset code with an expiry
//
// Repository implementations receive pre-validated types from these constructors.
//
// # Engine
//
// Engine is the account-security state machine. Every operation returns an error
// carrying a Code (see CodeOf); storage and hashing faults never cross the engine
// boundary except as CodeInternalError.
//
// Account status moves Unverified -> Enabled on Confirm and * -> Deleted on Delete.
// Lockout is not a stored status: an account whose FailedAttempts reached the
// configured maximum is refused at login before its password is checked. A
// successful login does not reset FailedAttempts.
package membership
