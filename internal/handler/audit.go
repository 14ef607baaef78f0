// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"

	"github.com/whirlwindnoa/ams/internal/middleware"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/render"
	"github.com/whirlwindnoa/ams/internal/store"
)

// auditPerPage is the page size of the audit log.
const auditPerPage = 50

// AuditHandler serves the read-only audit log page.
type AuditHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(db *sql.DB, renderer *render.Renderer) *AuditHandler {
	return &AuditHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// AuditListData is the template payload for the audit log page.
type AuditListData struct {
	Entries    []model.AuditEntryWithUser
	Pagination Pagination
}

// List renders the paginated audit log, newest entries first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageParam(r)

	total, err := h.queries.CountAuditEntries(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to count audit entries", "error", err)
		return
	}
	pagination := BuildPagination(page, total, auditPerPage, redirectAdmin+RouteAudit)

	entries, err := h.queries.ListAuditEntries(r.Context(), store.ListAuditEntriesParams{
		Limit:  auditPerPage,
		Offset: pagination.Offset(),
	})
	if err != nil {
		logAndInternalError(w, "failed to list audit entries", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "admin/audit", render.TemplateData{
		Title: "Audit Log",
		User:  middleware.GetUser(r),
		Data:  AuditListData{Entries: entries, Pagination: pagination},
	})
	if err != nil {
		logAndInternalError(w, "failed to render audit page", "error", err)
	}
}
