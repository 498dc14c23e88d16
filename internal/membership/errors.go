// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned by repositories when a write violates a uniqueness constraint.
var ErrAlreadyExists = errors.New("already exists")

// Code identifies the outcome of an engine operation.
// The numeric values are stable and safe to hand to clients.
type Code int

// Engine result codes.
const (
	CodeSuccess                    Code = 1000
	CodeInvalidEmailOrPassword     Code = 1001
	CodeEmailNotVerified           Code = 1002
	CodeAccountDisabled            Code = 1003
	CodeInvalidEmail               Code = 1004
	CodeAlreadyExists              Code = 1005
	CodePasswordRequirementsNotMet Code = 1006
	CodeInternalError              Code = 1007
	CodeDoesNotExist               Code = 1008
	CodeAlreadyVerified            Code = 1009
	CodeExternalAuthError          Code = 1010
	CodeAccountLocked              Code = 1011
	CodeVerificationError          Code = 1012
)

var codeNames = map[Code]string{
	CodeSuccess:                    "SUCCESS",
	CodeInvalidEmailOrPassword:     "INVALID_EMAIL_OR_PASSWORD",
	CodeEmailNotVerified:           "EMAIL_NOT_VERIFIED",
	CodeAccountDisabled:            "ACCOUNT_DISABLED",
	CodeInvalidEmail:               "INVALID_EMAIL",
	CodeAlreadyExists:              "ALREADY_EXISTS",
	CodePasswordRequirementsNotMet: "PASSWORD_REQUIREMENTS_NOT_MET",
	CodeInternalError:              "INTERNAL_ERROR",
	CodeDoesNotExist:               "DOES_NOT_EXIST",
	CodeAlreadyVerified:            "ALREADY_VERIFIED",
	CodeExternalAuthError:          "EXTERNAL_AUTH_ERROR",
	CodeAccountLocked:              "ACCOUNT_LOCKED",
	CodeVerificationError:          "VERIFICATION_ERROR",
}

var codesByName = func() map[string]Code {
	m := make(map[string]Code, len(codeNames))
	for code, name := range codeNames {
		m[name] = code
	}
	return m
}()

// String returns the symbolic name used as the oops error code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE_%d", int(c))
}

// ParseCode maps a symbolic name back to its Code.
func ParseCode(name string) (Code, bool) {
	code, ok := codesByName[name]
	return code, ok
}

// CodeOf extracts the engine Code carried by err.
// A nil error is CodeSuccess; an error without an engine code is CodeInternalError.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if code, ok := engineCode(err); ok {
		return code
	}
	return CodeInternalError
}

// engineCode reports the engine Code of err, if it has one.
func engineCode(err error) (Code, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0, false
	}
	name, ok := oopsErr.Code().(string)
	if !ok {
		return 0, false
	}
	return ParseCode(name)
}

// newError builds an engine error carrying code.
func newError(code Code, format string, args ...any) error {
	return oops.Code(code.String()).Errorf(format, args...)
}
