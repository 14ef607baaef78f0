// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/whirlwindnoa/ams/internal/imaging"
	"github.com/whirlwindnoa/ams/internal/middleware"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/render"
	"github.com/whirlwindnoa/ams/internal/service"
	"github.com/whirlwindnoa/ams/internal/store"
)

// VenueHandler handles venue management routes.
type VenueHandler struct {
	queries   *store.Queries
	renderer  *render.Renderer
	processor *imaging.Processor
	audit     *service.AuditService
}

// NewVenueHandler creates a new VenueHandler.
func NewVenueHandler(db *sql.DB, renderer *render.Renderer, processor *imaging.Processor) *VenueHandler {
	return &VenueHandler{
		queries:   store.New(db),
		renderer:  renderer,
		processor: processor,
		audit:     service.NewAuditService(db),
	}
}

// VenueListData is the template payload for the venue list page.
type VenueListData struct {
	Venues  []model.Venue
	CanAdd  bool
	CanDrop bool
}

// List renders the venue overview with a create form for superusers.
func (h *VenueHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	venues, err := h.queries.ListVenues(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list venues", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "admin/venues", render.TemplateData{
		Title: "Venues",
		User:  user,
		Data: VenueListData{
			Venues:  venues,
			CanAdd:  user.Elevation >= model.ElevationSuperuser,
			CanDrop: user.Elevation >= model.ElevationManager,
		},
	})
	if err != nil {
		logAndInternalError(w, "failed to render venues page", "error", err)
	}
}

// Create handles the new-venue form, including an optional image upload.
// POST /admin/venues
func (h *VenueHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		flashError(w, r, h.renderer, redirectAdminVenues, "Invalid form data or file too large")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	location := strings.TrimSpace(r.FormValue("location"))
	if len(name) < 2 || len(location) < 2 {
		flashError(w, r, h.renderer, redirectAdminVenues, "Name and location must be at least 2 characters")
		return
	}

	capacity, err := strconv.ParseInt(r.FormValue("capacity"), 10, 64)
	if err != nil || capacity < 1 {
		flashError(w, r, h.renderer, redirectAdminVenues, "Capacity must be a positive number")
		return
	}

	image := sql.NullString{}
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		result, err := h.processor.ProcessVenueImage(file)
		if err != nil {
			slog.Warn("venue image rejected", "error", err, "user_id", user.ID)
			flashError(w, r, h.renderer, redirectAdminVenues, "Could not process image: "+err.Error())
			return
		}
		image = sql.NullString{String: result.Path, Valid: true}
	}

	venue, err := h.queries.CreateVenue(r.Context(), store.CreateVenueParams{
		Name:      name,
		Location:  location,
		Capacity:  capacity,
		Image:     image,
		CreatedAt: time.Now(),
	})
	if err != nil {
		// Don't leave the uploaded files orphaned
		if image.Valid {
			_ = h.processor.DeleteVenueImage(image.String)
		}
		logAndInternalError(w, "failed to create venue", "error", err)
		return
	}

	slog.Info("venue created", "venue_id", venue.ID, "user_id", user.ID)
	_ = h.audit.Recordf(r.Context(), user.ID, "Added venue %s", venue.Name)

	flashSuccess(w, r, h.renderer, redirectAdminVenues, "Venue created")
}

// Delete removes a venue and its image files. Events referencing the
// venue keep running with a null venue.
// POST /admin/venues/{id}/delete
func (h *VenueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	id, ok := parseIDParam(r)
	if !ok {
		flashError(w, r, h.renderer, redirectAdminVenues, "Invalid venue ID")
		return
	}

	venue, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminVenues, "venue", id,
		func(id int64) (model.Venue, error) { return h.queries.GetVenueByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := h.queries.DeleteVenue(r.Context(), venue.ID); err != nil {
		logAndInternalError(w, "failed to delete venue", "error", err, "venue_id", venue.ID)
		return
	}

	if venue.HasImage() {
		if err := h.processor.DeleteVenueImage(venue.Image.String); err != nil {
			slog.Error("failed to delete venue image", "error", err, "venue_id", venue.ID)
		}
	}

	slog.Info("venue deleted", "venue_id", venue.ID, "user_id", user.ID)
	_ = h.audit.Recordf(r.Context(), user.ID, "Deleted venue %s", venue.Name)

	flashSuccess(w, r, h.renderer, redirectAdminVenues, "Venue deleted")
}
