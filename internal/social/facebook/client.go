// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package facebook resolves Facebook access tokens to user identities through
// the Graph API.
package facebook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/membership/internal/membership"
)

// DefaultGraphURL is the Graph API base used when none is configured.
const DefaultGraphURL = "https://graph.facebook.com/v19.0"

// maxBody bounds how much of a Graph response is read.
const maxBody = 1 << 20

// Options configures a Client.
type Options struct {
	AppID     string
	AppSecret string
	GraphURL  string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

// Client exchanges access tokens for profiles.
type Client struct {
	appID     string
	appSecret string
	meURL     string
	http      *http.Client
}

var _ membership.SocialIdentityProvider = (*Client)(nil)

// New creates a Client. Both AppID and AppSecret are required.
func New(opts Options) (*Client, error) {
	if opts.AppID == "" || opts.AppSecret == "" {
		return nil, oops.Code("FACEBOOK_CONFIG_INVALID").Errorf("facebook app id and app secret are required")
	}
	base := opts.GraphURL
	if base == "" {
		base = DefaultGraphURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, oops.Code("FACEBOOK_CONFIG_INVALID").With("graph_url", base).Wrap(err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		appID:     opts.AppID,
		appSecret: opts.AppSecret,
		meURL:     strings.TrimSuffix(base, "/") + "/me",
		http:      httpClient,
	}, nil
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

type meResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Error *graphError `json:"error"`
}

// ExchangeToken fetches the name and email behind accessToken.
func (c *Client) ExchangeToken(ctx context.Context, accessToken string) (*membership.SocialIdentity, error) {
	q := url.Values{}
	q.Set("fields", "name,email")
	q.Set("access_token", accessToken)
	q.Set("appsecret_proof", c.proof(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.meURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, oops.Code("FACEBOOK_REQUEST_FAILED").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// the URL carries the token; keep it out of the error
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, oops.Code("FACEBOOK_REQUEST_FAILED").Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body meResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return nil, oops.Code("FACEBOOK_RESPONSE_INVALID").With("status", resp.StatusCode).Wrap(err)
	}
	if body.Error != nil {
		return nil, oops.Code("FACEBOOK_GRAPH_ERROR").
			With("status", resp.StatusCode).
			With("graph_type", body.Error.Type).
			With("graph_code", body.Error.Code).
			Errorf("graph api: %s", body.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, oops.Code("FACEBOOK_GRAPH_ERROR").
			With("status", resp.StatusCode).
			Errorf("graph api returned status %d", resp.StatusCode)
	}

	return &membership.SocialIdentity{Name: body.Name, Email: body.Email}, nil
}

// proof is the appsecret_proof Graph expects: hex HMAC-SHA256 of the token
// keyed by the app secret.
func (c *Client) proof(accessToken string) string {
	mac := hmac.New(sha256.New, []byte(c.appSecret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}
