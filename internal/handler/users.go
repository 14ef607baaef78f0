// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/whirlwindnoa/ams/internal/auth"
	"github.com/whirlwindnoa/ams/internal/geoip"
	"github.com/whirlwindnoa/ams/internal/middleware"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/render"
	"github.com/whirlwindnoa/ams/internal/service"
	"github.com/whirlwindnoa/ams/internal/session"
	"github.com/whirlwindnoa/ams/internal/store"
)

// usersPerPage is the page size of the user management list.
const usersPerPage = 25

// UserHandler handles user management routes.
type UserHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	sessions *session.Manager
	audit    *service.AuditService
	geo      *geoip.Lookup
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *sql.DB, renderer *render.Renderer, sessions *session.Manager, geo *geoip.Lookup) *UserHandler {
	return &UserHandler{
		queries:  store.New(db),
		renderer: renderer,
		sessions: sessions,
		audit:    service.NewAuditService(db),
		geo:      geo,
	}
}

// UserListData is the template payload for the user list page.
type UserListData struct {
	Users      []model.User
	Pagination Pagination
}

// List renders the paginated user management page.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageParam(r)

	total, err := h.queries.CountUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to count users", "error", err)
		return
	}
	pagination := BuildPagination(page, total, usersPerPage, redirectAdminUsers)

	users, err := h.queries.ListUsers(r.Context(), store.ListUsersParams{
		Limit:  usersPerPage,
		Offset: pagination.Offset(),
	})
	if err != nil {
		logAndInternalError(w, "failed to list users", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "admin/users", render.TemplateData{
		Title: "Users",
		User:  middleware.GetUser(r),
		Data:  UserListData{Users: users, Pagination: pagination},
	})
	if err != nil {
		logAndInternalError(w, "failed to render users page", "error", err)
	}
}

// Promote raises the target user's elevation one tier.
// POST /admin/users/{id}/promote
func (h *UserHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.changeElevation(w, r, +1)
}

// Demote lowers the target user's elevation one tier.
// POST /admin/users/{id}/demote
func (h *UserHandler) Demote(w http.ResponseWriter, r *http.Request) {
	h.changeElevation(w, r, -1)
}

// changeElevation applies an elevation step after authorization checks
// and propagates the change into any live cached sessions.
func (h *UserHandler) changeElevation(w http.ResponseWriter, r *http.Request, step model.Elevation) {
	actor := middleware.GetUser(r)
	id, ok := parseIDParam(r)
	if !ok {
		flashError(w, r, h.renderer, redirectAdminUsers, "Invalid user ID")
		return
	}

	target, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminUsers, "user", id,
		func(id int64) (model.User, error) { return h.queries.GetUserByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := auth.CanModifyUser(actor, &target, model.ElevationManager); err != nil {
		h.rejectUserAction(w, r, actor, &target, err)
		return
	}

	next := target.Elevation + step
	if !next.Valid() {
		flashError(w, r, h.renderer, redirectAdminUsers, "User is already at the "+target.Elevation.Label()+" tier")
		return
	}
	// The target must stay strictly below the actor afterwards too;
	// a manager cannot mint another manager.
	if next >= actor.Elevation {
		flashError(w, r, h.renderer, redirectAdminUsers, "Cannot raise a user to your own tier")
		return
	}

	err := h.queries.UpdateUserElevation(r.Context(), store.UpdateUserElevationParams{
		Elevation: next,
		ID:        target.ID,
	})
	if err != nil {
		logAndInternalError(w, "failed to update elevation", "error", err, "user_id", target.ID)
		return
	}

	// Live sessions pick up the new elevation out of band
	h.sessions.RefreshUserCache(target.ID)

	verb := "Promoted"
	if step < 0 {
		verb = "Demoted"
	}
	slog.Info("user elevation changed",
		"actor_id", actor.ID, "user_id", target.ID, "elevation", next.Label())
	_ = h.audit.Recordf(r.Context(), actor.ID, "%s user %s to %s", verb, target.Email, next.Label())

	flashSuccess(w, r, h.renderer, redirectAdminUsers, verb+" "+target.Email+" to "+next.Label())
}

// Delete removes a user account. The sessions table cascades; cached
// sessions are evicted explicitly.
// POST /admin/users/{id}/delete
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)
	id, ok := parseIDParam(r)
	if !ok {
		flashError(w, r, h.renderer, redirectAdminUsers, "Invalid user ID")
		return
	}

	target, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminUsers, "user", id,
		func(id int64) (model.User, error) { return h.queries.GetUserByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := auth.CanModifyUser(actor, &target, model.ElevationManager); err != nil {
		h.rejectUserAction(w, r, actor, &target, err)
		return
	}

	// Snapshot tokens before the rows cascade away
	tokens, err := h.queries.ListSessionTokensByUser(r.Context(), target.ID)
	if err != nil {
		slog.Error("failed to list sessions of deleted user", "error", err, "user_id", target.ID)
	}

	if err := h.queries.DeleteUser(r.Context(), target.ID); err != nil {
		logAndInternalError(w, "failed to delete user", "error", err, "user_id", target.ID)
		return
	}

	h.sessions.EvictUser(tokens)

	slog.Info("user deleted", "actor_id", actor.ID, "user_id", target.ID, "email", target.Email)
	_ = h.audit.Recordf(r.Context(), actor.ID, "Deleted user %s", target.Email)

	flashSuccess(w, r, h.renderer, redirectAdminUsers, "Deleted "+target.Email)
}

// rejectUserAction maps a policy error to the matching flash message.
func (h *UserHandler) rejectUserAction(w http.ResponseWriter, r *http.Request, actor *model.CachedUser, target *model.User, err error) {
	slog.Warn("user action denied",
		"actor_id", actor.ID, "target_id", target.ID, "reason", err)

	switch {
	case errors.Is(err, auth.ErrSelfAction):
		flashError(w, r, h.renderer, redirectAdminUsers, "You cannot perform this action on your own account")
	case errors.Is(err, auth.ErrTargetNotBelow):
		flashError(w, r, h.renderer, redirectAdminUsers, "You can only manage users below your own tier")
	default:
		flashError(w, r, h.renderer, redirectAdminUsers, "You are not allowed to manage users")
	}
}

// SessionInfo is one row of the active sessions page.
type SessionInfo struct {
	Token   string
	Current bool
	Session model.Session
	Country string
}

// Sessions renders the current user's active sessions.
// GET /admin/sessions
func (h *UserHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	sessions, err := h.sessions.Sessions(r.Context(), user.ID)
	if err != nil {
		logAndInternalError(w, "failed to list sessions", "error", err, "user_id", user.ID)
		return
	}

	rows := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		info := SessionInfo{
			Token:   s.Token,
			Current: s.Token == user.Token,
			Session: s,
		}
		if h.geo != nil {
			info.Country = h.geo.LookupCountry(s.IP)
		}
		rows = append(rows, info)
	}

	err = h.renderer.Render(w, r, "admin/sessions", render.TemplateData{
		Title: "Active Sessions",
		User:  user,
		Data:  rows,
	})
	if err != nil {
		logAndInternalError(w, "failed to render sessions page", "error", err)
	}
}

// RevokeSession invalidates one of the current user's sessions.
// POST /admin/sessions/revoke
func (h *UserHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdmin+RouteSessions) {
		return
	}
	token := r.FormValue("token")

	// Only the owner may revoke a session through this page
	s, err := h.queries.GetSessionByToken(r.Context(), token)
	if err != nil || s.UserID != user.ID {
		flashError(w, r, h.renderer, redirectAdmin+RouteSessions, "Session not found")
		return
	}

	if err := h.sessions.Invalidate(r.Context(), token); err != nil {
		logAndInternalError(w, "failed to revoke session", "error", err, "user_id", user.ID)
		return
	}

	slog.Info("session revoked", "user_id", user.ID)

	if token == user.Token {
		// Revoking the session backing this request signs the user out
		h.sessions.ClearCookie(w)
		flashAndRedirect(w, r, h.renderer, redirectLogin, "You have been signed out.", "info")
		return
	}
	flashSuccess(w, r, h.renderer, redirectAdmin+RouteSessions, "Session revoked")
}
