// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser is the context key for the resolved session user.
const ContextKeyUser ContextKey = "user"

// ResolveUser creates middleware that resolves the token cookie into a
// session user and stores it in the request context. Requests without a
// valid session proceed without a user; a stale cookie is cleared so
// the browser stops presenting it.
func ResolveUser(sm *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, refreshed, err := sm.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrNoSession) {
					sm.ClearCookie(w)
				} else {
					slog.Error("failed to resolve session", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if refreshed {
				sm.WriteCookie(w, user.Token)
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.CachedUser {
	user, ok := r.Context().Value(ContextKeyUser).(model.CachedUser)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// RequireUser creates middleware that requires an authenticated session.
// Unauthenticated requests are redirected to the login page.
func RequireUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUser(r) == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireElevation creates middleware that requires a minimum user
// elevation. Elevations are totally ordered: a superuser passes every
// check a manager does. Unauthenticated requests are redirected to
// login; authenticated requests below the floor get a 403.
func RequireElevation(minimum model.Elevation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			if user.Elevation < minimum {
				// Log 403 for security monitoring
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_elevation", user.Elevation.Label(),
					"required_elevation", minimum.Label(),
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Forbidden: insufficient elevation", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
