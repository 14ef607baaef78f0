// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session implements the cookie session lifecycle: issuing,
// resolving, refreshing and invalidating tokens, backed by the sessions
// table and fronted by the process-scoped session cache.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/whirlwindnoa/ams/internal/cache"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/store"
)

// CookieName is the name of the session cookie.
const CookieName = "token"

// Defaults for the session lifecycle.
const (
	// DefaultTTL is the session lifetime granted at issue and on each
	// sliding refresh (~1 month).
	DefaultTTL = 730 * time.Hour

	// DefaultRefreshWindow is how close to expiry a resolved session
	// must be before its lifetime is extended.
	DefaultRefreshWindow = 7 * 24 * time.Hour

	// DefaultMaxPerUser caps the number of concurrent sessions per
	// user. Issuing beyond the cap evicts the earliest-expiring ones.
	DefaultMaxPerUser = 10
)

// tokenRetryLimit bounds the uniqueness retry loop at issue. A collision
// of 32 random bytes is near-impossible, but it is handled, not assumed
// away.
const tokenRetryLimit = 5

// ErrNoSession is returned by Resolve when the token maps to no live
// session. It is a normal, non-error state for the request pipeline:
// callers clear the cookie and any stale cache entry, and proceed
// unauthenticated.
var ErrNoSession = errors.New("session: no session")

// Config holds session manager settings.
type Config struct {
	TTL           time.Duration
	RefreshWindow time.Duration
	MaxPerUser    int

	// Cookie attributes.
	CookieDomain string
	Secure       bool
}

// DefaultConfig returns the standard session settings.
func DefaultConfig(cookieDomain string, secure bool) Config {
	return Config{
		TTL:           DefaultTTL,
		RefreshWindow: DefaultRefreshWindow,
		MaxPerUser:    DefaultMaxPerUser,
		CookieDomain:  cookieDomain,
		Secure:        secure,
	}
}

// Manager owns the session lifecycle. It is constructed once at startup
// and shared by the middleware and handlers; all session table and
// session cache writes go through it.
type Manager struct {
	queries *store.Queries
	cache   *cache.SessionCache
	cfg     Config
}

// NewManager creates a session manager over the given database and cache.
func NewManager(db *sql.DB, sc *cache.SessionCache, cfg Config) *Manager {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RefreshWindow == 0 {
		cfg.RefreshWindow = DefaultRefreshWindow
	}
	if cfg.MaxPerUser == 0 {
		cfg.MaxPerUser = DefaultMaxPerUser
	}
	return &Manager{
		queries: store.New(db),
		cache:   sc,
		cfg:     cfg,
	}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.cfg.TTL
}

// Issue creates a new session for the user and returns its token. After
// inserting the row it enforces the per-user cap, evicting the
// earliest-expiring sessions beyond the newest MaxPerUser and removing
// their tokens from the cache.
func (m *Manager) Issue(ctx context.Context, user model.User, ip, userAgent string) (string, error) {
	token, err := m.uniqueToken(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now()
	if err := m.queries.CreateSession(ctx, store.CreateSessionParams{
		Token:     token,
		UserID:    user.ID,
		Expires:   now.Add(m.cfg.TTL),
		CreatedAt: now,
		IP:        ip,
		UserAgent: userAgent,
	}); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	if err := m.enforceCap(ctx, user.ID); err != nil {
		// The new session is already live; cap overflow is corrected on
		// the next issue for this user.
		slog.Error("session cap enforcement failed", "error", err, "user_id", user.ID)
	}

	return token, nil
}

// uniqueToken generates a token and retries until it does not collide
// with an existing session row.
func (m *Manager) uniqueToken(ctx context.Context) (string, error) {
	for range tokenRetryLimit {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		exists, err := m.queries.SessionTokenExists(ctx, token)
		if err != nil {
			return "", fmt.Errorf("checking token uniqueness: %w", err)
		}
		if !exists {
			return token, nil
		}
	}
	return "", errors.New("session: token generation kept colliding")
}

// enforceCap deletes a user's earliest-expiring sessions beyond the
// configured cap. Deletion is idempotent, so racing requests evicting
// the same token are harmless.
func (m *Manager) enforceCap(ctx context.Context, userID int64) error {
	sessions, err := m.queries.ListSessionsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) <= m.cfg.MaxPerUser {
		return nil
	}

	for _, s := range sessions[m.cfg.MaxPerUser:] {
		if err := m.queries.DeleteSession(ctx, s.Token); err != nil {
			return fmt.Errorf("evicting session: %w", err)
		}
		m.cache.Delete(s.Token)
		slog.Debug("session evicted by cap", "user_id", userID)
	}
	return nil
}

// Resolve maps a cookie token to its user. Cache hits return without
// touching the store. On a miss the session and user rows are loaded;
// a missing or expired session, or an orphaned user, degrades to
// ErrNoSession after deleting whatever inconsistent state was found.
// Sessions inside the refresh window get their expiry extended to
// now+TTL; refreshed is true when that happened and the caller should
// reissue the cookie with the renewed max-age. The returned projection
// never carries the credential.
func (m *Manager) Resolve(ctx context.Context, token string) (user model.CachedUser, refreshed bool, err error) {
	if entry, ok := m.cache.Get(token); ok {
		return entry, false, nil
	}

	sess, err := m.queries.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			m.cache.Delete(token)
			return model.CachedUser{}, false, ErrNoSession
		}
		return model.CachedUser{}, false, fmt.Errorf("loading session: %w", err)
	}

	if sess.Expired() {
		// Lazy expiry: no background sweep, dead sessions are reaped by
		// the resolve that finds them.
		if err := m.queries.DeleteSession(ctx, token); err != nil {
			slog.Error("deleting expired session", "error", err)
		}
		m.cache.Delete(token)
		return model.CachedUser{}, false, ErrNoSession
	}

	owner, err := m.queries.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Orphaned session row; remove it and degrade silently.
			if err := m.queries.DeleteSession(ctx, token); err != nil {
				slog.Error("deleting orphaned session", "error", err)
			}
			m.cache.Delete(token)
			return model.CachedUser{}, false, ErrNoSession
		}
		return model.CachedUser{}, false, fmt.Errorf("loading session user: %w", err)
	}

	now := time.Now()
	if sess.Expires.Sub(now) < m.cfg.RefreshWindow {
		if err := m.queries.UpdateSessionExpires(ctx, store.UpdateSessionExpiresParams{
			Expires: now.Add(m.cfg.TTL),
			Token:   token,
		}); err != nil {
			slog.Error("refreshing session expiry", "error", err, "user_id", owner.ID)
		} else {
			refreshed = true
		}
	}

	entry := model.CachedUser{
		ID:        owner.ID,
		Email:     owner.Email,
		Elevation: owner.Elevation,
		Token:     token,
	}
	m.cache.Set(entry)
	return entry, refreshed, nil
}

// Invalidate deletes the session row and its cache entry. Used by
// logout and session revocation.
func (m *Manager) Invalidate(ctx context.Context, token string) error {
	if err := m.queries.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	m.cache.Delete(token)
	return nil
}

// RefreshUserCache pushes a user's fresh identity fields into every
// cached entry for that user's live sessions. It runs detached from the
// triggering request: callers invoke it after promote/demote and move
// on, and it must stay safe to run after the response has been sent.
// Errors are logged, never surfaced.
func (m *Manager) RefreshUserCache(userID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.refreshUserCache(ctx, userID); err != nil {
			slog.Error("session cache refresh failed", "error", err, "user_id", userID)
		}
	}()
}

func (m *Manager) refreshUserCache(ctx context.Context, userID int64) error {
	fresh, err := m.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// User deleted between the mutation and this refresh; their
			// sessions cascaded, the cache is corrected by EvictUser.
			return nil
		}
		return fmt.Errorf("loading user: %w", err)
	}

	tokens, err := m.queries.ListSessionTokensByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing session tokens: %w", err)
	}

	for _, token := range tokens {
		m.cache.Merge(token, fresh)
	}
	return nil
}

// EvictUser removes every cached entry for the given tokens. Used after
// user deletion, where the session rows are already gone via cascade.
func (m *Manager) EvictUser(tokens []string) {
	for _, token := range tokens {
		m.cache.Delete(token)
	}
}

// Sessions returns a user's live sessions, latest-expiring first.
func (m *Manager) Sessions(ctx context.Context, userID int64) ([]model.Session, error) {
	return m.queries.ListSessionsByUser(ctx, userID)
}

// SessionTokens returns the tokens of a user's live sessions.
func (m *Manager) SessionTokens(ctx context.Context, userID int64) ([]string, error) {
	return m.queries.ListSessionTokensByUser(ctx, userID)
}

// WriteCookie sets the session cookie with max-age equal to the TTL.
func (m *Manager) WriteCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.cfg.CookieDomain,
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
