// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the membership engine as a JSON HTTP API.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/membership/internal/membership"
)

// Service is the set of membership operations the API serves.
// *membership.Engine implements it.
type Service interface {
	Register(ctx context.Context, req membership.RegisterRequest) (*membership.Account, error)
	Login(ctx context.Context, email, password string, ttl time.Duration) (*membership.Session, error)
	LoginWithFacebook(ctx context.Context, accessToken string, ttl time.Duration) (*membership.Session, error)
	Logout(ctx context.Context, token string) error
	LoggedInUser(ctx context.Context, token string) (*membership.Account, error)
	Update(ctx context.Context, req membership.UpdateRequest) error
	Details(ctx context.Context, id ulid.ULID) (*membership.AccountDetails, error)
	Delete(ctx context.Context, id ulid.ULID) error
	Confirm(ctx context.Context, userID ulid.ULID, code string) error
	Resend(ctx context.Context, email string) error
	Forgot(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID ulid.ULID, code, newPassword string) error
}

var _ Service = (*membership.Engine)(nil)

var tracer = otel.Tracer("membership/httpapi")

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Options configures the router. Every field is optional.
type Options struct {
	Logger *slog.Logger
	// Metrics is mounted after routing so it sees route patterns.
	Metrics Middleware
	// RequestTimeout bounds each request; zero means 30s.
	RequestTimeout time.Duration
}

// API holds the handlers.
type API struct {
	svc    Service
	logger *slog.Logger
}

// NewRouter builds the /v1 API.
func NewRouter(svc Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	a := &API{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(traceRequests)
	r.Use(a.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))
	if opts.Metrics != nil {
		r.Use(opts.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", 0, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", 0, "method not allowed")
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/accounts", a.register)
		r.Post("/accounts/confirm", a.confirm)
		r.Post("/accounts/resend", a.resend)
		r.Post("/sessions", a.login)
		r.Post("/sessions/facebook", a.loginFacebook)
		r.Post("/password/forgot", a.forgot)
		r.Post("/password/reset", a.resetPassword)
		r.Delete("/sessions/current", a.logout)

		r.Group(func(r chi.Router) {
			r.Use(a.requireSession)
			r.Get("/accounts/{id}", a.details)
			r.Get("/me", a.me)
			r.Put("/me", a.update)
			r.Delete("/me", a.deleteMe)
		})
	})

	return r
}

// traceRequests wraps each request in a span named after its route, so log
// records written while serving it carry the trace and span ids.
func traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("request.id", chimiddleware.GetReqID(r.Context())),
			),
		)
		defer span.End()

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
			span.SetName(r.Method + " " + rctx.RoutePattern())
			span.SetAttributes(attribute.String("http.route", rctx.RoutePattern()))
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

// requestLogger logs one line per request.
func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimiddleware.GetReqID(r.Context()),
			"remote", clientIP(r),
		)
	})
}

// clientIP is the host part of RemoteAddr. Behind chi's RealIP middleware
// that is whatever X-Forwarded-For or X-Real-IP claimed, so it is only fit
// for logging.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
