// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net/http"

	"github.com/holomush/membership/internal/membership"
	"github.com/holomush/membership/pkg/errutil"
)

// statusByCode maps engine codes to HTTP statuses.
var statusByCode = map[membership.Code]int{
	membership.CodeInvalidEmailOrPassword:     http.StatusUnauthorized,
	membership.CodeEmailNotVerified:           http.StatusForbidden,
	membership.CodeAccountDisabled:            http.StatusForbidden,
	membership.CodeInvalidEmail:               http.StatusBadRequest,
	membership.CodeAlreadyExists:              http.StatusConflict,
	membership.CodePasswordRequirementsNotMet: http.StatusUnprocessableEntity,
	membership.CodeInternalError:              http.StatusInternalServerError,
	membership.CodeDoesNotExist:               http.StatusNotFound,
	membership.CodeAlreadyVerified:            http.StatusConflict,
	membership.CodeExternalAuthError:          http.StatusUnauthorized,
	membership.CodeAccountLocked:              http.StatusLocked,
	membership.CodeVerificationError:          http.StatusBadRequest,
}

// StatusFor returns the HTTP status of an engine code.
func StatusFor(code membership.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeEngineError renders an engine error. Internal errors get a fixed
// message; their detail has already been logged by the engine.
func (a *API) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	code := membership.CodeOf(err)
	message := err.Error()
	if code == membership.CodeInternalError {
		message = "internal error"
		if errutil.Code(err) != membership.CodeInternalError.String() {
			errutil.LogErrorContext(r.Context(), a.logger, "unexpected error from membership engine", err)
		}
	}
	writeError(w, r, StatusFor(code), code.String(), int(code), message)
}
