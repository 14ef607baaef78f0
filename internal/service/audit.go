// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic shared by handlers, currently
// the append-only audit trail of privileged actions.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/whirlwindnoa/ams/internal/store"
)

// AuditService appends records to the audit log. Callers must record
// after the mutating write has committed, never before, so the trail
// never claims an action that failed.
type AuditService struct {
	queries *store.Queries
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{
		queries: store.New(db),
	}
}

// Record appends an audit entry for the acting user. A failure to
// record is logged but returned to the caller for visibility; the
// already-committed mutation is never rolled back over it.
func (s *AuditService) Record(ctx context.Context, actorID int64, action string) error {
	err := s.queries.CreateAuditEntry(ctx, store.CreateAuditEntryParams{
		UserID:    sql.NullInt64{Int64: actorID, Valid: true},
		Action:    action,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to record audit entry", "error", err, "user_id", actorID, "action", action)
		return err
	}
	return nil
}

// Recordf appends a formatted audit entry for the acting user.
func (s *AuditService) Recordf(ctx context.Context, actorID int64, format string, args ...any) error {
	return s.Record(ctx, actorID, fmt.Sprintf(format, args...))
}

// RecordSystem appends an audit entry with no acting user, used for
// system-originated records such as forwarded log events.
func (s *AuditService) RecordSystem(ctx context.Context, action string) error {
	err := s.queries.CreateAuditEntry(ctx, store.CreateAuditEntryParams{
		Action:    action,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to record system audit entry", "error", err, "action", action)
		return err
	}
	return nil
}
