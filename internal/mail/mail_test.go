// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/membership/internal/membership"
	"github.com/holomush/membership/pkg/errutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMessage() membership.Message {
	return membership.Message{
		ToAddress:   "ada@example.com",
		ToName:      "Ada Lovelace",
		FromAddress: "support@example.com",
		FromName:    "Support",
		Subject:     "Verify your email",
		Body:        "Dear Ada\n\nhttps://example.com/verify/1/2\n",
	}
}

type recordedSend struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func newTestMailer(t *testing.T, results ...error) (*SMTPMailer, *[]recordedSend) {
	t.Helper()
	m, err := NewSMTPMailer(SMTPOptions{Host: "smtp.example.com", Port: 2525, Backoff: time.Millisecond}, discardLogger())
	require.NoError(t, err)

	var sent []recordedSend
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, recordedSend{addr: addr, from: from, to: to, msg: msg})
		if len(results) == 0 {
			return nil
		}
		next := results[0]
		results = results[1:]
		return next
	}
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return m, &sent
}

func TestNewSMTPMailer_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts SMTPOptions
	}{
		{"missing host", SMTPOptions{Port: 25}},
		{"zero port", SMTPOptions{Host: "smtp.example.com"}},
		{"port too large", SMTPOptions{Host: "smtp.example.com", Port: 70000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSMTPMailer(tt.opts, nil)
			errutil.AssertErrorCode(t, err, "SMTP_CONFIG_INVALID")
		})
	}
}

func TestNewSMTPMailer_AuthOnlyWithUsername(t *testing.T) {
	anon, err := NewSMTPMailer(SMTPOptions{Host: "smtp.example.com", Port: 25}, nil)
	require.NoError(t, err)
	assert.Nil(t, anon.auth)

	authed, err := NewSMTPMailer(SMTPOptions{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, authed.auth)
	assert.Equal(t, "smtp.example.com:587", authed.addr)
}

func TestSMTPMailer_SendComposesMessage(t *testing.T) {
	m, sent := newTestMailer(t)

	require.NoError(t, m.Send(context.Background(), testMessage()))
	require.Len(t, *sent, 1)

	got := (*sent)[0]
	assert.Equal(t, "smtp.example.com:2525", got.addr)
	assert.Equal(t, "support@example.com", got.from)
	assert.Equal(t, []string{"ada@example.com"}, got.to)

	parsed, err := mail.ReadMessage(bytes.NewReader(got.msg))
	require.NoError(t, err)
	assert.Equal(t, `"Ada Lovelace" <ada@example.com>`, parsed.Header.Get("To"))
	assert.Equal(t, `"Support" <support@example.com>`, parsed.Header.Get("From"))
	assert.Equal(t, "Verify your email", parsed.Header.Get("Subject"))
	assert.Equal(t, "Fri, 02 Jan 2026 03:04:05 +0000", parsed.Header.Get("Date"))
	assert.True(t, strings.HasSuffix(parsed.Header.Get("Message-ID"), "@smtp.example.com>"))
	assert.Contains(t, parsed.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	assert.Equal(t, "Dear Ada\r\n\r\nhttps://example.com/verify/1/2\r\n", string(body))
}

func TestSMTPMailer_SendEncodesNonASCIISubject(t *testing.T) {
	m, sent := newTestMailer(t)
	msg := testMessage()
	msg.Subject = "Vérifiez votre adresse"

	require.NoError(t, m.Send(context.Background(), msg))

	parsed, err := mail.ReadMessage(bytes.NewReader((*sent)[0].msg))
	require.NoError(t, err)
	raw := parsed.Header.Get("Subject")
	assert.True(t, strings.HasPrefix(raw, "=?utf-8?q?"), raw)

	decoded, err := new(mime.WordDecoder).DecodeHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, decoded)
}

func TestSMTPMailer_SendRetriesTransientFailures(t *testing.T) {
	transient := &textproto.Error{Code: 421, Msg: "try again later"}
	m, sent := newTestMailer(t, transient, errors.New("connection reset"))

	require.NoError(t, m.Send(context.Background(), testMessage()))
	assert.Len(t, *sent, 3)
}

func TestSMTPMailer_SendGivesUp(t *testing.T) {
	transient := errors.New("dial tcp: connection refused")
	m, sent := newTestMailer(t, transient, transient, transient, transient)

	err := m.Send(context.Background(), testMessage())
	errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
	errutil.AssertErrorContext(t, err, "attempts", 3)
	assert.Len(t, *sent, 3)
}

func TestSMTPMailer_SendDoesNotRetryPermanentFailures(t *testing.T) {
	permanent := &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	m, sent := newTestMailer(t, permanent)

	err := m.Send(context.Background(), testMessage())
	errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
	assert.Len(t, *sent, 1)
	var tpErr *textproto.Error
	assert.ErrorAs(t, err, &tpErr)
}

func TestSMTPMailer_SendRejectsBadAddresses(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*membership.Message)
		field string
	}{
		{"bad recipient", func(m *membership.Message) { m.ToAddress = "not-an-address" }, "to"},
		{"empty sender", func(m *membership.Message) { m.FromAddress = "" }, "from"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sent := newTestMailer(t)
			msg := testMessage()
			tt.edit(&msg)

			err := m.Send(context.Background(), msg)
			errutil.AssertErrorCode(t, err, "MAIL_ADDRESS_INVALID")
			errutil.AssertErrorContext(t, err, "field", tt.field)
			assert.Empty(t, *sent)
		})
	}
}

func TestLogMailer_LogsWithoutBodyAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	require.NoError(t, NewLogMailer(logger).Send(context.Background(), testMessage()))

	out := buf.String()
	assert.Contains(t, out, "to=ada@example.com")
	assert.Contains(t, out, `subject="Verify your email"`)
	assert.NotContains(t, out, "https://example.com/verify")
}

func TestLogMailer_LogsBodyAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	require.NoError(t, NewLogMailer(logger).Send(context.Background(), testMessage()))
	assert.Contains(t, buf.String(), "https://example.com/verify/1/2")
}
