// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"context"
	"time"
)

// Transactor runs fn inside a storage transaction. Repository calls made with
// the context passed to fn join that transaction. A non-nil error from fn rolls
// every write back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Message is an outbound email.
type Message struct {
	ToAddress   string
	ToName      string
	FromAddress string
	FromName    string
	Subject     string
	Body        string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SocialIdentity is the profile returned by an identity provider.
type SocialIdentity struct {
	Name  string
	Email string
}

// SocialIdentityProvider exchanges a client-side access token for the user's identity.
type SocialIdentityProvider interface {
	ExchangeToken(ctx context.Context, accessToken string) (*SocialIdentity, error)
}

// Clock returns the current time.
type Clock func() time.Time
