// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers of the admin portal.
package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/whirlwindnoa/ams/internal/middleware"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/render"
	"github.com/whirlwindnoa/ams/internal/store"
)

// AdminHandler serves the dashboard and the seating plan page.
type AdminHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *sql.DB, renderer *render.Renderer) *AdminHandler {
	return &AdminHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// DashboardData is the template payload for the dashboard page.
type DashboardData struct {
	EventCount    int
	UpcomingCount int
	VenueCount    int
	UserCount     int64
	Upcoming      []model.EventWithCreator
}

// maxUpcomingOnDashboard bounds the upcoming-events list on the dashboard.
const maxUpcomingOnDashboard = 5

// Dashboard renders the portal landing page.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	events, err := h.queries.ListEvents(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list events", "error", err)
		return
	}
	venues, err := h.queries.ListVenues(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list venues", "error", err)
		return
	}
	userCount, err := h.queries.CountUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to count users", "error", err)
		return
	}

	now := time.Now()
	var upcoming []model.EventWithCreator
	for _, e := range events {
		if e.Status == model.EventStatusCancelled {
			continue
		}
		if e.Date.Valid && e.Date.Time.After(now) {
			upcoming = append(upcoming, e)
		}
	}
	shown := upcoming
	if len(shown) > maxUpcomingOnDashboard {
		shown = shown[:maxUpcomingOnDashboard]
	}

	err = h.renderer.Render(w, r, "admin/dashboard", render.TemplateData{
		Title: "Dashboard",
		User:  user,
		Data: DashboardData{
			EventCount:    len(events),
			UpcomingCount: len(upcoming),
			VenueCount:    len(venues),
			UserCount:     userCount,
			Upcoming:      shown,
		},
	})
	if err != nil {
		logAndInternalError(w, "failed to render dashboard", "error", err)
	}
}

// Seating renders the seating plan page. Plans are not built yet; the
// page lists scheduled events with their venues as a starting point.
// GET /admin/seating
func (h *AdminHandler) Seating(w http.ResponseWriter, r *http.Request) {
	events, err := h.queries.ListEvents(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list events", "error", err)
		return
	}

	var scheduled []model.EventWithCreator
	for _, e := range events {
		if e.Status == model.EventStatusScheduled {
			scheduled = append(scheduled, e)
		}
	}

	err = h.renderer.Render(w, r, "admin/seating", render.TemplateData{
		Title: "Seating Plans",
		User:  middleware.GetUser(r),
		Data:  EventListData{Events: scheduled},
	})
	if err != nil {
		logAndInternalError(w, "failed to render seating page", "error", err)
	}
}
