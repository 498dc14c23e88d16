// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package membership_test

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/membership/internal/membership"
)

const password = "correct-horse-battery"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code   string `json:"code"`
		Number int    `json:"number"`
	} `json:"error"`
}

func call(method, path, token string, body any) (int, envelope) {
	GinkgoHelper()
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, &buf)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	var out envelope
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return resp.StatusCode, out
}

func expectCode(status int, out envelope, wantStatus int, wantCode string) {
	GinkgoHelper()
	Expect(status).To(Equal(wantStatus))
	Expect(out.Success).To(BeFalse())
	Expect(out.Error).NotTo(BeNil())
	Expect(out.Error.Code).To(Equal(wantCode))
}

func register(email string) string {
	GinkgoHelper()
	status, out := call(http.MethodPost, "/v1/accounts", "", map[string]string{
		"name": "Integration User", "email": email, "password": password,
	})
	Expect(status).To(Equal(http.StatusCreated), "%+v", out.Error)
	var account struct {
		ID string `json:"id"`
	}
	Expect(json.Unmarshal(out.Data, &account)).To(Succeed())
	return account.ID
}

func confirm(email string) {
	GinkgoHelper()
	userID, code := env.mailer.lastLinkTo(email)
	status, out := call(http.MethodPost, "/v1/accounts/confirm", "", map[string]string{"user_id": userID, "code": code})
	Expect(status).To(Equal(http.StatusOK), "%+v", out.Error)
}

func login(email, pw string) (int, envelope) {
	return call(http.MethodPost, "/v1/sessions", "", map[string]string{"email": email, "password": pw})
}

func token(email, pw string) string {
	GinkgoHelper()
	status, out := login(email, pw)
	Expect(status).To(Equal(http.StatusCreated), "%+v", out.Error)
	var session struct {
		Token string `json:"token"`
	}
	Expect(json.Unmarshal(out.Data, &session)).To(Succeed())
	return session.Token
}

func accountRow(id string) (membership.Status, int) {
	GinkgoHelper()
	var status, attempts int
	err := env.pool.QueryRow(env.ctx,
		`SELECT status, failed_attempts FROM accounts WHERE id = $1`, ulid.MustParse(id).String()).
		Scan(&status, &attempts)
	Expect(err).NotTo(HaveOccurred())
	return membership.Status(status), attempts
}

func accountStatus(id string) membership.Status {
	GinkgoHelper()
	status, _ := accountRow(id)
	return status
}

var _ = Describe("Membership against PostgreSQL", func() {
	Describe("registration and confirmation", func() {
		It("keeps a new account unverified until the emailed code is confirmed", func() {
			id := register("new@example.com")
			Expect(accountStatus(id)).To(Equal(membership.StatusUnverified))

			status, out := login("new@example.com", password)
			expectCode(status, out, http.StatusForbidden, "EMAIL_NOT_VERIFIED")

			confirm("new@example.com")
			Expect(accountStatus(id)).To(Equal(membership.StatusEnabled))
			Expect(token("new@example.com", password)).To(HaveLen(64))
		})

		It("rejects a second registration of the same email", func() {
			register("dup@example.com")
			status, out := call(http.MethodPost, "/v1/accounts", "", map[string]string{
				"name": "Other", "email": "dup@example.com", "password": password,
			})
			expectCode(status, out, http.StatusConflict, "ALREADY_EXISTS")
		})

		It("resends the outstanding code", func() {
			register("resend@example.com")
			firstID, firstCode := env.mailer.lastLinkTo("resend@example.com")

			status, _ := call(http.MethodPost, "/v1/accounts/resend", "", map[string]string{"email": "resend@example.com"})
			Expect(status).To(Equal(http.StatusAccepted))
			secondID, secondCode := env.mailer.lastLinkTo("resend@example.com")
			Expect(secondID).To(Equal(firstID))
			Expect(secondCode).To(Equal(firstCode))

			status, out := call(http.MethodPost, "/v1/accounts/confirm", "", map[string]string{"user_id": firstID, "code": "not-the-code"})
			expectCode(status, out, http.StatusBadRequest, "VERIFICATION_ERROR")

			confirm("resend@example.com")
			status, out = call(http.MethodPost, "/v1/accounts/resend", "", map[string]string{"email": "resend@example.com"})
			expectCode(status, out, http.StatusConflict, "ALREADY_VERIFIED")
		})
	})

	Describe("sessions", func() {
		It("resolves, then forgets, a session token", func() {
			id := register("session@example.com")
			confirm("session@example.com")
			tok := token("session@example.com", password)

			status, out := call(http.MethodGet, "/v1/me", tok, nil)
			Expect(status).To(Equal(http.StatusOK))
			var me struct {
				ID string `json:"id"`
			}
			Expect(json.Unmarshal(out.Data, &me)).To(Succeed())
			Expect(me.ID).To(Equal(id))

			status, _ = call(http.MethodDelete, "/v1/sessions/current", tok, nil)
			Expect(status).To(Equal(http.StatusOK))

			status, out = call(http.MethodGet, "/v1/me", tok, nil)
			expectCode(status, out, http.StatusUnauthorized, "UNAUTHORIZED")
		})

		It("locks the account after repeated failures and persists the count", func() {
			id := register("lock@example.com")
			confirm("lock@example.com")

			for range membership.DefaultMaxFailedAttempts {
				status, out := login("lock@example.com", "wrong-password")
				expectCode(status, out, http.StatusUnauthorized, "INVALID_EMAIL_OR_PASSWORD")
			}
			status, out := login("lock@example.com", password)
			expectCode(status, out, http.StatusLocked, "ACCOUNT_LOCKED")

			_, attempts := accountRow(id)
			Expect(attempts).To(BeNumerically(">=", membership.DefaultMaxFailedAttempts))
		})
	})

	Describe("password reset", func() {
		It("replaces the password with a single-use emailed code", func() {
			register("reset@example.com")
			confirm("reset@example.com")

			status, _ := call(http.MethodPost, "/v1/password/forgot", "", map[string]string{"email": "reset@example.com"})
			Expect(status).To(Equal(http.StatusAccepted))
			userID, code := env.mailer.lastLinkTo("reset@example.com")

			status, out := call(http.MethodPost, "/v1/password/forgot", "", map[string]string{"email": "reset@example.com"})
			expectCode(status, out, http.StatusConflict, "ALREADY_EXISTS")

			reset := map[string]string{"user_id": userID, "code": code, "password": "a-brand-new-password"}
			status, out = call(http.MethodPost, "/v1/password/reset", "", reset)
			Expect(status).To(Equal(http.StatusOK), "%+v", out.Error)

			status, out = call(http.MethodPost, "/v1/password/reset", "", reset)
			expectCode(status, out, http.StatusBadRequest, "VERIFICATION_ERROR")

			status, out = login("reset@example.com", password)
			expectCode(status, out, http.StatusUnauthorized, "INVALID_EMAIL_OR_PASSWORD")
			Expect(token("reset@example.com", "a-brand-new-password")).NotTo(BeEmpty())
		})
	})

	Describe("deletion", func() {
		It("soft deletes the account, ends its sessions and frees the email", func() {
			id := register("gone@example.com")
			confirm("gone@example.com")
			tok := token("gone@example.com", password)

			status, _ := call(http.MethodDelete, "/v1/me", tok, nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(accountStatus(id)).To(Equal(membership.StatusDeleted))

			status, out := call(http.MethodGet, "/v1/me", tok, nil)
			expectCode(status, out, http.StatusUnauthorized, "UNAUTHORIZED")
			status, out = call(http.MethodGet, "/v1/accounts/"+id, tok, nil)
			expectCode(status, out, http.StatusUnauthorized, "UNAUTHORIZED")

			Expect(register("gone@example.com")).NotTo(Equal(id))
		})
	})
})
