// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/holomush/membership/internal/membership"
)

const (
	maxBodyBytes = 64 << 10
	// maxTTLSeconds caps requested session lifetimes at one year.
	maxTTLSeconds = 365 * 24 * 60 * 60
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type facebookLoginRequest struct {
	AccessToken string `json:"access_token"`
	TTLSeconds  int64  `json:"ttl_seconds"`
}

type updateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type codeRequest struct {
	UserID   string `json:"user_id"`
	Code     string `json:"code"`
	Password string `json:"password,omitempty"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type accountResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

func newAccountResponse(a *membership.Account) accountResponse {
	return accountResponse{
		ID:     a.ID.String(),
		Name:   a.Name,
		Email:  a.Email,
		Phone:  a.Phone,
		Status: a.Status.String(),
		Source: a.Source.String(),
		Type:   a.Type.String(),
	}
}

func newSessionResponse(s *membership.Session) sessionResponse {
	return sessionResponse{Token: s.Token, UserID: s.UserID.String(), ExpiresAt: s.ExpiresAt.UTC()}
}

// decode reads a JSON body into dst and writes a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "request body must be a JSON object"
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			msg = "request body too large"
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			msg = err.Error()
		}
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", 0, msg)
		return false
	}
	return true
}

func parseULID(w http.ResponseWriter, r *http.Request, raw, field string) (ulid.ULID, bool) {
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_ID", 0, field+" is not a valid id")
		return ulid.ULID{}, false
	}
	return id, true
}

func ttlFrom(w http.ResponseWriter, r *http.Request, seconds int64) (time.Duration, bool) {
	if seconds < 0 {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", 0, "ttl_seconds cannot be negative")
		return 0, false
	}
	if seconds > maxTTLSeconds {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", 0, fmt.Sprintf("ttl_seconds cannot exceed %d", maxTTLSeconds))
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	const prefix = "bearer "
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

type accountKey struct{}

// requireSession resolves the bearer token to an account or answers 401.
func (a *API) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", 0, "bearer session token required")
			return
		}
		account, err := a.svc.LoggedInUser(r.Context(), token)
		if err != nil {
			if membership.CodeOf(err) == membership.CodeDoesNotExist {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", int(membership.CodeDoesNotExist), "session is not valid")
				return
			}
			a.writeEngineError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, account)))
	})
}

func sessionAccount(r *http.Request) *membership.Account {
	account, _ := r.Context().Value(accountKey{}).(*membership.Account)
	return account
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	account, err := a.svc.Register(r.Context(), membership.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newAccountResponse(account))
}

func (a *API) confirm(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}
	id, ok := parseULID(w, r, req.UserID, "user_id")
	if !ok {
		return
	}
	if err := a.svc.Confirm(r.Context(), id, req.Code); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"confirmed": true})
}

func (a *API) resend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.svc.Resend(r.Context(), req.Email); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]any{"sent": true})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	ttl, ok := ttlFrom(w, r, req.TTLSeconds)
	if !ok {
		return
	}
	session, err := a.svc.Login(r.Context(), req.Email, req.Password, ttl)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newSessionResponse(session))
}

func (a *API) loginFacebook(w http.ResponseWriter, r *http.Request) {
	var req facebookLoginRequest
	if !decode(w, r, &req) {
		return
	}
	ttl, ok := ttlFrom(w, r, req.TTLSeconds)
	if !ok {
		return
	}
	session, err := a.svc.LoginWithFacebook(r.Context(), req.AccessToken, ttl)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newSessionResponse(session))
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Logout(r.Context(), bearerToken(r)); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"logged_out": true})
}

func (a *API) forgot(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.svc.Forgot(r.Context(), req.Email); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]any{"sent": true})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}
	id, ok := parseULID(w, r, req.UserID, "user_id")
	if !ok {
		return
	}
	if err := a.svc.ResetPassword(r.Context(), id, req.Code, req.Password); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"reset": true})
}

// details answers only for the session's own account. Other ids look
// exactly like missing ones.
func (a *API) details(w http.ResponseWriter, r *http.Request) {
	id, ok := parseULID(w, r, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}
	if id != sessionAccount(r).ID {
		writeError(w, r, http.StatusNotFound, membership.CodeDoesNotExist.String(), int(membership.CodeDoesNotExist), "account does not exist")
		return
	}
	details, err := a.svc.Details(r.Context(), id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, details)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, newAccountResponse(sessionAccount(r)))
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decode(w, r, &req) {
		return
	}
	account := sessionAccount(r)
	err := a.svc.Update(r.Context(), membership.UpdateRequest{
		ID:       account.ID,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"updated": true, "email_changed": req.Email != account.Email})
}

func (a *API) deleteMe(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Delete(r.Context(), sessionAccount(r).ID); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}
