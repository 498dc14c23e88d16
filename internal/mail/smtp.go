// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mail delivers membership emails.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/membership/internal/membership"
)

// SMTPOptions locates and authenticates against an SMTP relay.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	// Attempts bounds delivery tries per message. Zero means 3.
	Attempts uint64
	// Backoff is the first retry delay. Zero means 250ms.
	Backoff time.Duration
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends messages through an SMTP relay.
type SMTPMailer struct {
	addr     string
	host     string
	auth     smtp.Auth
	attempts uint64
	backoff  time.Duration
	send     sendFunc
	now      func() time.Time
	logger   *slog.Logger
}

var _ membership.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates an SMTPMailer. PLAIN auth is used when a username is set.
func NewSMTPMailer(opts SMTPOptions, logger *slog.Logger) (*SMTPMailer, error) {
	if opts.Host == "" {
		return nil, oops.Code("SMTP_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return nil, oops.Code("SMTP_CONFIG_INVALID").With("port", opts.Port).Errorf("smtp port out of range")
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Backoff == 0 {
		opts.Backoff = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &SMTPMailer{
		addr:     net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		host:     opts.Host,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		send:     smtp.SendMail,
		now:      time.Now,
		logger:   logger,
	}
	if opts.Username != "" {
		m.auth = smtp.PlainAuth("", opts.Username, opts.Password, opts.Host)
	}
	return m, nil
}

// Send delivers msg, retrying transient failures with exponential backoff.
// Permanent (5xx) SMTP replies are not retried.
func (m *SMTPMailer) Send(ctx context.Context, msg membership.Message) error {
	raw, err := m.compose(msg)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(m.attempts-1, retry.NewExponential(m.backoff))
	attempt := 0
	err = retry.Do(ctx, backoff, func(_ context.Context) error {
		attempt++
		sendErr := m.send(m.addr, m.auth, msg.FromAddress, []string{msg.ToAddress}, raw)
		if sendErr == nil {
			return nil
		}
		if isPermanent(sendErr) {
			return sendErr
		}
		m.logger.WarnContext(ctx, "smtp delivery failed, retrying",
			"attempt", attempt, "relay", m.addr, "error", sendErr)
		return retry.RetryableError(sendErr)
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("relay", m.addr).
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}

// compose renders msg as an RFC 5322 plain text message.
func (m *SMTPMailer) compose(msg membership.Message) ([]byte, error) {
	if _, err := mail.ParseAddress(msg.ToAddress); err != nil {
		return nil, oops.Code("MAIL_ADDRESS_INVALID").With("field", "to").Wrap(err)
	}
	if _, err := mail.ParseAddress(msg.FromAddress); err != nil {
		return nil, oops.Code("MAIL_ADDRESS_INVALID").With("field", "from").Wrap(err)
	}

	from := mail.Address{Name: msg.FromName, Address: msg.FromAddress}
	to := mail.Address{Name: msg.ToName, Address: msg.ToAddress}

	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", ulid.Make().String(), m.host))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(normalizeNewlines(msg.Body))
	return b.Bytes(), nil
}

// normalizeNewlines converts bare LF to CRLF as SMTP requires.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

// isPermanent reports whether err is a 5xx SMTP reply.
func isPermanent(err error) bool {
	msg := err.Error()
	return len(msg) >= 3 && msg[0] == '5' && msg[1] >= '0' && msg[1] <= '9' && msg[2] >= '0' && msg[2] <= '9'
}
