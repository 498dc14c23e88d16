// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/holomush/membership/internal/membership"
)

// LogMailer writes messages to the log instead of sending them. The body is
// logged at debug level only.
type LogMailer struct {
	logger *slog.Logger
}

var _ membership.Mailer = (*LogMailer)(nil)

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs msg.
func (m *LogMailer) Send(ctx context.Context, msg membership.Message) error {
	m.logger.InfoContext(ctx, "email not sent, no smtp relay configured",
		"to", msg.ToAddress, "subject", msg.Subject)
	m.logger.DebugContext(ctx, "email body", "to", msg.ToAddress, "body", msg.Body)
	return nil
}
