// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/whirlwindnoa/ams/internal/middleware"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/session"
	"github.com/whirlwindnoa/ams/internal/testutil"
)

func newAuthHandler(env *testEnv, lp *middleware.LoginProtection) *AuthHandler {
	return NewAuthHandler(env.db, env.renderer, env.sessions, lp)
}

func TestRegisterCreatesUnapprovedUserWithSession(t *testing.T) {
	env := newTestEnv(t)
	h := newAuthHandler(env, nil)

	rec := httptest.NewRecorder()
	h.Register(rec, postForm("/api/auth/register", url.Values{
		"email":    {"New.User@Example.COM "},
		"password": {"hunter2hunter2"},
	}))

	assertRedirect(t, rec, "/admin")

	user, err := env.queries.GetUserByEmail(context.Background(), "new.user@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user.Elevation != model.ElevationUnapproved {
		t.Errorf("elevation = %d, want %d", user.Elevation, model.ElevationUnapproved)
	}

	token := sessionToken(rec)
	if token == "" {
		t.Fatal("no session cookie set")
	}
	resolved, _, err := env.sessions.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.ID != user.ID {
		t.Errorf("resolved user ID = %d, want %d", resolved.ID, user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	h := newAuthHandler(env, nil)
	testutil.CreateUser(t, env.db, "taken@example.com", model.ElevationStaff)

	rec := httptest.NewRecorder()
	h.Register(rec, postForm("/api/auth/register", url.Values{
		"email":    {"taken@example.com"},
		"password": {"hunter2hunter2"},
	}))

	assertRedirect(t, rec, "/register")
	if msg, typ := flashOf(t, rec); typ != "error" || !strings.Contains(msg, "already exists") {
		t.Errorf("flash = %q (%s), want duplicate-email error", msg, typ)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{"missing_email", "", "hunter2hunter2", "Email and password are required"},
		{"missing_password", "a@example.com", "", "Email and password are required"},
		{"invalid_email", "not-an-email", "hunter2hunter2", "Invalid email address"},
		{"short_password", "a@example.com", "short", "Password must be at least 8 characters"},
		{"long_password", "a@example.com", strings.Repeat("x", 73), "Password must be at most 72 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			h := newAuthHandler(env, nil)

			rec := httptest.NewRecorder()
			h.Register(rec, postForm("/api/auth/register", url.Values{
				"email":    {tt.email},
				"password": {tt.password},
			}))

			assertRedirect(t, rec, "/register")
			if msg, _ := flashOf(t, rec); msg != tt.want {
				t.Errorf("flash = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestLoginIssuesSession(t *testing.T) {
	env := newTestEnv(t)
	h := newAuthHandler(env, nil)
	user := testutil.CreateUser(t, env.db, "staff@example.com", model.ElevationStaff)

	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/api/auth/login", url.Values{
		"email":    {"STAFF@example.com"},
		"password": {"Correct.Horse1"},
	}))

	assertRedirect(t, rec, "/admin")

	token := sessionToken(rec)
	if token == "" {
		t.Fatal("no session cookie set")
	}
	resolved, _, err := env.sessions.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.ID != user.ID {
		t.Errorf("resolved user ID = %d, want %d", resolved.ID, user.ID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	h := newAuthHandler(env, nil)
	testutil.CreateUser(t, env.db, "staff@example.com", model.ElevationStaff)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong_password", "staff@example.com", "not-the-password"},
		{"unknown_account", "nobody@example.com", "Correct.Horse1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Login(rec, postForm("/api/auth/login", url.Values{
				"email":    {tt.email},
				"password": {tt.password},
			}))

			assertRedirect(t, rec, "/login")
			// Same message for both cases so accounts can't be enumerated
			if msg, _ := flashOf(t, rec); msg != "Invalid email or password" {
				t.Errorf("flash = %q, want generic failure message", msg)
			}
			if sessionToken(rec) != "" {
				t.Error("session cookie set on failed login")
			}
		})
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		MaxFailedAttempts: 2,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})
	h := newAuthHandler(env, lp)
	testutil.CreateUser(t, env.db, "staff@example.com", model.ElevationStaff)

	attempt := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Login(rec, postForm("/api/auth/login", url.Values{
			"email":    {"staff@example.com"},
			"password": {"wrong"},
		}))
		return rec
	}

	attempt()
	rec := attempt()
	if msg, _ := flashOf(t, rec); !strings.Contains(msg, "Too many failed attempts") {
		t.Fatalf("flash = %q, want lockout message", msg)
	}

	// The right password doesn't help while locked
	rec = httptest.NewRecorder()
	h.Login(rec, postForm("/api/auth/login", url.Values{
		"email":    {"staff@example.com"},
		"password": {"Correct.Horse1"},
	}))
	if msg, _ := flashOf(t, rec); !strings.Contains(msg, "locked") {
		t.Errorf("flash = %q, want locked message", msg)
	}
	if sessionToken(rec) != "" {
		t.Error("session cookie set while account locked")
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	env := newTestEnv(t)
	h := newAuthHandler(env, nil)
	user := testutil.CreateUser(t, env.db, "staff@example.com", model.ElevationStaff)

	token, err := env.sessions.Issue(context.Background(), user, "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	rec := httptest.NewRecorder()
	h.Logout(rec, asUser(r, user))

	assertRedirect(t, rec, "/login")

	if _, _, err := env.sessions.Resolve(context.Background(), token); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("Resolve after logout: err = %v, want ErrNoSession", err)
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
}

func TestLoginFormRedirectsAuthenticated(t *testing.T) {
	env := newTestEnv(t)
	h := newAuthHandler(env, nil)
	user := testutil.CreateUser(t, env.db, "staff@example.com", model.ElevationStaff)

	r := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	h.LoginForm(rec, asUser(r, user))

	assertRedirect(t, rec, "/admin")
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{"valid", "a@example.com", "hunter2hunter2", ""},
		{"empty", "", "", "Email and password are required"},
		{"bad_email", "nope", "hunter2hunter2", "Invalid email address"},
		{"min_length_password", "a@example.com", "12345678", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateCredentials(tt.email, tt.password); got != tt.want {
				t.Errorf("validateCredentials() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30 seconds"},
		{time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour, "1 hour"},
		{3 * time.Hour, "3 hours"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
