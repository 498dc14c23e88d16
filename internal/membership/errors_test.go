// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/membership/internal/membership"
)

func TestCode_StringRoundTrip(t *testing.T) {
	codes := []membership.Code{
		membership.CodeSuccess,
		membership.CodeInvalidEmailOrPassword,
		membership.CodeEmailNotVerified,
		membership.CodeAccountDisabled,
		membership.CodeInvalidEmail,
		membership.CodeAlreadyExists,
		membership.CodePasswordRequirementsNotMet,
		membership.CodeInternalError,
		membership.CodeDoesNotExist,
		membership.CodeAlreadyVerified,
		membership.CodeExternalAuthError,
		membership.CodeAccountLocked,
		membership.CodeVerificationError,
	}
	for _, code := range codes {
		t.Run(code.String(), func(t *testing.T) {
			parsed, ok := membership.ParseCode(code.String())
			assert.True(t, ok)
			assert.Equal(t, code, parsed)
		})
	}
}

func TestCode_NumericValuesAreStable(t *testing.T) {
	assert.Equal(t, 1001, int(membership.CodeInvalidEmailOrPassword))
	assert.Equal(t, 1007, int(membership.CodeInternalError))
	assert.Equal(t, 1011, int(membership.CodeAccountLocked))
	assert.Equal(t, 1012, int(membership.CodeVerificationError))
	assert.Equal(t, "CODE_42", membership.Code(42).String())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want membership.Code
	}{
		{"nil is success", nil, membership.CodeSuccess},
		{"plain error is internal", errors.New("boom"), membership.CodeInternalError},
		{"foreign oops code is internal", oops.Code("ACCOUNT_NOT_FOUND").Errorf("missing"), membership.CodeInternalError},
		{"engine code", oops.Code("ACCOUNT_LOCKED").Errorf("locked"), membership.CodeAccountLocked},
		{"wrapped engine code", oops.With("k", "v").Wrap(oops.Code("INVALID_EMAIL").Errorf("bad")), membership.CodeInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, membership.CodeOf(tt.err))
		})
	}
}

func TestParseCode_Unknown(t *testing.T) {
	_, ok := membership.ParseCode("NOT_A_CODE")
	assert.False(t, ok)
}
