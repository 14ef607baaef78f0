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

	"github.com/whirlwindnoa/ams/internal/auth"
	"github.com/whirlwindnoa/ams/internal/middleware"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/render"
	"github.com/whirlwindnoa/ams/internal/service"
	"github.com/whirlwindnoa/ams/internal/store"
)

// minEventNameLength is the shortest accepted event name.
const minEventNameLength = 3

// eventDateLayout is the format of the combined date+time form fields.
const eventDateLayout = "2006-01-02 15:04"

// EventHandler handles event management routes.
type EventHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	audit    *service.AuditService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(db *sql.DB, renderer *render.Renderer) *EventHandler {
	return &EventHandler{
		queries:  store.New(db),
		renderer: renderer,
		audit:    service.NewAuditService(db),
	}
}

// EventListData is the template payload for the event list page.
type EventListData struct {
	Events []model.EventWithCreator
}

// EventFormData is the template payload for the create/edit form.
type EventFormData struct {
	Event    model.Event
	Venues   []model.Venue
	Statuses []string
	IsEdit   bool
}

// List renders the event overview, undated events last.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.queries.ListEvents(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list events", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "admin/events", render.TemplateData{
		Title: "Events",
		User:  middleware.GetUser(r),
		Data:  EventListData{Events: events},
	})
	if err != nil {
		logAndInternalError(w, "failed to render events page", "error", err)
	}
}

// NewForm renders the create-event form.
func (h *EventHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	venues, err := h.queries.ListVenues(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list venues", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "admin/event_form", render.TemplateData{
		Title: "New Event",
		User:  middleware.GetUser(r),
		Data: EventFormData{
			Event:    model.Event{Status: model.EventStatusDraft},
			Venues:   venues,
			Statuses: eventStatuses(),
		},
	})
	if err != nil {
		logAndInternalError(w, "failed to render event form", "error", err)
	}
}

// Create handles the new-event form submission.
// POST /admin/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminEvents+RouteSuffixNew) {
		return
	}

	form, msg := parseEventForm(r)
	if msg != "" {
		flashError(w, r, h.renderer, redirectAdminEvents+RouteSuffixNew, msg)
		return
	}

	event, err := h.queries.CreateEvent(r.Context(), store.CreateEventParams{
		Name:      form.Name,
		Date:      form.Date,
		Booked:    form.Booked,
		Capacity:  form.Capacity,
		Status:    form.Status,
		Notes:     form.Notes,
		VenueID:   form.VenueID,
		AddedBy:   user.ID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		logAndInternalError(w, "failed to create event", "error", err)
		return
	}

	slog.Info("event created", "event_id", event.ID, "user_id", user.ID)
	_ = h.audit.Recordf(r.Context(), user.ID, "Added event %s", event.Name)

	flashSuccess(w, r, h.renderer, redirectAdminEvents, "Event created")
}

// EditForm renders the edit form for an existing event.
func (h *EventHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	id, ok := parseIDParam(r)
	if !ok {
		flashError(w, r, h.renderer, redirectAdminEvents, "Invalid event ID")
		return
	}

	event, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminEvents, "event", id,
		func(id int64) (model.Event, error) { return h.queries.GetEventByID(r.Context(), id) })
	if !ok {
		return
	}

	if !auth.CanModifyEvent(user, &event) {
		h.rejectEventAction(w, r, user, event.ID)
		return
	}

	venues, err := h.queries.ListVenues(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list venues", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "admin/event_form", render.TemplateData{
		Title: "Edit Event",
		User:  user,
		Data: EventFormData{
			Event:    event,
			Venues:   venues,
			Statuses: eventStatuses(),
			IsEdit:   true,
		},
	})
	if err != nil {
		logAndInternalError(w, "failed to render event form", "error", err)
	}
}

// Update handles the edit form submission.
// POST /admin/events/{id} (HTML forms can't send PUT)
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	id, ok := parseIDParam(r)
	if !ok {
		flashError(w, r, h.renderer, redirectAdminEvents, "Invalid event ID")
		return
	}

	event, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminEvents, "event", id,
		func(id int64) (model.Event, error) { return h.queries.GetEventByID(r.Context(), id) })
	if !ok {
		return
	}

	if !auth.CanModifyEvent(user, &event) {
		h.rejectEventAction(w, r, user, event.ID)
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminEvents) {
		return
	}

	form, msg := parseEventForm(r)
	if msg != "" {
		flashError(w, r, h.renderer, eventEditURL(id), msg)
		return
	}

	err := h.queries.UpdateEvent(r.Context(), store.UpdateEventParams{
		Name:     form.Name,
		Date:     form.Date,
		Booked:   form.Booked,
		Capacity: form.Capacity,
		Status:   form.Status,
		Notes:    form.Notes,
		VenueID:  form.VenueID,
		ID:       event.ID,
	})
	if err != nil {
		logAndInternalError(w, "failed to update event", "error", err, "event_id", event.ID)
		return
	}

	slog.Info("event updated", "event_id", event.ID, "user_id", user.ID)
	_ = h.audit.Recordf(r.Context(), user.ID, "Edited event %s", form.Name)

	flashSuccess(w, r, h.renderer, redirectAdminEvents, "Event updated")
}

// Delete removes an event.
// POST /admin/events/{id}/delete
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	id, ok := parseIDParam(r)
	if !ok {
		flashError(w, r, h.renderer, redirectAdminEvents, "Invalid event ID")
		return
	}

	event, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminEvents, "event", id,
		func(id int64) (model.Event, error) { return h.queries.GetEventByID(r.Context(), id) })
	if !ok {
		return
	}

	if !auth.CanModifyEvent(user, &event) {
		h.rejectEventAction(w, r, user, event.ID)
		return
	}

	if err := h.queries.DeleteEvent(r.Context(), event.ID); err != nil {
		logAndInternalError(w, "failed to delete event", "error", err, "event_id", event.ID)
		return
	}

	slog.Info("event deleted", "event_id", event.ID, "user_id", user.ID)
	_ = h.audit.Recordf(r.Context(), user.ID, "Deleted event %s", event.Name)

	flashSuccess(w, r, h.renderer, redirectAdminEvents, "Event deleted")
}

func (h *EventHandler) rejectEventAction(w http.ResponseWriter, r *http.Request, user *model.CachedUser, eventID int64) {
	slog.Warn("event action denied", "user_id", user.ID, "event_id", eventID)
	flashError(w, r, h.renderer, redirectAdminEvents, "You can only modify events you created")
}

// eventForm holds the validated fields of the event form.
type eventForm struct {
	Name     string
	Date     sql.NullTime
	Booked   int64
	Capacity int64
	Status   string
	Notes    string
	VenueID  sql.NullInt64
}

// parseEventForm validates the submitted event form, returning a
// user-facing message for the first problem found.
func parseEventForm(r *http.Request) (eventForm, string) {
	var form eventForm

	form.Name = strings.TrimSpace(r.FormValue("name"))
	if len(form.Name) < minEventNameLength {
		return form, "Event name must be at least 3 characters"
	}

	capacity, err := strconv.ParseInt(r.FormValue("capacity"), 10, 64)
	if err != nil || capacity < 1 || capacity > model.MaxEventCapacity {
		return form, "Capacity must be between 1 and 9999"
	}
	form.Capacity = capacity

	// An empty booked field means zero
	if booked := r.FormValue("booked"); booked != "" {
		n, err := strconv.ParseInt(booked, 10, 64)
		if err != nil || n < 0 {
			return form, "Booked count must be a non-negative number"
		}
		form.Booked = n
	}
	if form.Booked > form.Capacity {
		return form, "Booked count cannot exceed capacity"
	}

	form.Status = r.FormValue("status")
	if !validEventStatus(form.Status) {
		return form, "Invalid event status"
	}

	// Date is optional; time defaults to midnight when only the date is set
	if date := r.FormValue("date"); date != "" {
		at := r.FormValue("time")
		if at == "" {
			at = "00:00"
		}
		parsed, err := time.Parse(eventDateLayout, date+" "+at)
		if err != nil {
			return form, "Invalid event date or time"
		}
		form.Date = sql.NullTime{Time: parsed, Valid: true}
	}

	if venue := r.FormValue("venue_id"); venue != "" && venue != "0" {
		id, err := strconv.ParseInt(venue, 10, 64)
		if err != nil || id < 1 {
			return form, "Invalid venue"
		}
		form.VenueID = sql.NullInt64{Int64: id, Valid: true}
	}

	form.Notes = strings.TrimSpace(r.FormValue("notes"))

	return form, ""
}

func validEventStatus(status string) bool {
	switch status {
	case model.EventStatusDraft, model.EventStatusScheduled, model.EventStatusCancelled:
		return true
	}
	return false
}

func eventStatuses() []string {
	return []string{model.EventStatusDraft, model.EventStatusScheduled, model.EventStatusCancelled}
}

func eventEditURL(id int64) string {
	return redirectAdminEvents + "/" + strconv.FormatInt(id, 10) + "/edit"
}
