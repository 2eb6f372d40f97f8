// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil carries the per-request values set by the middleware chain:
// the correlation id, the request-scoped logger and the library session.
package ctxutil

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/tsundoku/internal/platform/ctxkey"
	"github.com/taibuivan/tsundoku/internal/platform/sec"
)

// # Correlation

// WithRequestID attaches the X-Request-ID value.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// RequestID returns the correlation id, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Logging

// WithLogger attaches the request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// Logger returns the request-scoped logger. Background work such as CLI commands
// and startup migrations falls back to [slog.Default].
func Logger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// # Session

// WithSession attaches the verified library session.
func WithSession(ctx context.Context, claims *sec.SessionClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, claims)
}

// Session returns the verified session, or nil for an anonymous caller.
func Session(ctx context.Context) *sec.SessionClaims {
	claims, _ := ctx.Value(ctxkey.KeySession).(*sec.SessionClaims)
	return claims
}

// SessionExpiry reports when the caller's session cookie stops being accepted.
// The second result is false for anonymous callers and for sessions without an expiry.
func SessionExpiry(ctx context.Context) (time.Time, bool) {
	claims := Session(ctx)
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
