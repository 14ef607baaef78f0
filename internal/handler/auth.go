// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/whirlwindnoa/ams/internal/auth"
	"github.com/whirlwindnoa/ams/internal/middleware"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/render"
	"github.com/whirlwindnoa/ams/internal/service"
	"github.com/whirlwindnoa/ams/internal/session"
	"github.com/whirlwindnoa/ams/internal/store"
)

// Password length bounds for registration.
const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	queries         *store.Queries
	renderer        *render.Renderer
	sessions        *session.Manager
	audit           *service.AuditService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sessions *session.Manager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		renderer:        renderer,
		sessions:        sessions,
		audit:           service.NewAuditService(db),
		loginProtection: lp,
	}
}

// LoginForm renders the login page. Already-authenticated users are
// sent straight to the portal.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/login", render.TemplateData{Title: "Sign In"}); err != nil {
		logAndInternalError(w, "failed to render login page", "error", err)
	}
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/register", render.TemplateData{Title: "Register"}); err != nil {
		logAndInternalError(w, "failed to render registration page", "error", err)
	}
}

// Register handles the registration form submission. New accounts start
// unapproved and wait for a manager to elevate them.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectRegister) {
		return
	}

	email := normalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")

	if msg := validateCredentials(email, password); msg != "" {
		flashError(w, r, h.renderer, redirectRegister, msg)
		return
	}

	if _, err := h.queries.GetUserByEmail(r.Context(), email); err == nil {
		flashError(w, r, h.renderer, redirectRegister, "An account with this email already exists")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logAndInternalError(w, "failed to check for existing user", "error", err)
		return
	}

	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Email:     email,
		Password:  password,
		Elevation: model.ElevationUnapproved,
		CreatedAt: time.Now(),
	})
	if err != nil {
		logAndInternalError(w, "failed to create user", "error", err, "email", email)
		return
	}

	slog.Info("user registered", "user_id", user.ID, "email", user.Email)
	_ = h.audit.Recordf(r.Context(), user.ID, "Registered account %s", user.Email)

	h.startSession(w, r, user, "Welcome! Your account is awaiting approval.")
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	email := normalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Email and password are required")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			slog.Warn("login attempt on locked account", "email", email)
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Account temporarily locked. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("database error during login", "error", err)
		}
		// Record failed attempt even for non-existent users to prevent enumeration
		h.failLogin(w, r, email)
		return
	}

	if !auth.CheckCredential(password, user.Password) {
		slog.Warn("login failed: invalid credentials", "email", email)
		h.failLogin(w, r, email)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	h.startSession(w, r, user, "Welcome back!")
}

// failLogin records a failed attempt and redirects with a generic
// message that does not reveal whether the account exists.
func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, email string) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockDuration)))
			return
		}
	}
	flashError(w, r, h.renderer, redirectLogin, "Invalid email or password")
}

// startSession issues a session token, sets the cookie and redirects
// into the portal.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user model.User, welcome string) {
	token, err := h.sessions.Issue(r.Context(), user, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		logAndInternalError(w, "failed to issue session", "error", err, "user_id", user.ID)
		return
	}

	h.sessions.WriteCookie(w, token)
	flashSuccess(w, r, h.renderer, redirectAdmin, welcome)
}

// Logout invalidates the current session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Invalidate(r.Context(), cookie.Value); err != nil {
			slog.Error("failed to invalidate session", "error", err)
		}
	}

	h.sessions.ClearCookie(w)

	if userID := middleware.GetUserID(r); userID > 0 {
		slog.Info("user logged out", "user_id", userID)
	}

	flashAndRedirect(w, r, h.renderer, redirectLogin, "You have been signed out.", "info")
}

// normalizeEmail lowercases and trims an email address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateCredentials checks registration input, returning a
// user-facing message for the first problem found.
func validateCredentials(email, password string) string {
	if email == "" || password == "" {
		return "Email and password are required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Invalid email address"
	}
	if len(password) < minPasswordLength {
		return fmt.Sprintf("Password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Sprintf("Password must be at most %d characters", maxPasswordLength)
	}
	return ""
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
