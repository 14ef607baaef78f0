// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/whirlwindnoa/ams/internal/model"
)

// CreateAuditEntryParams holds the fields for appending an audit record.
type CreateAuditEntryParams struct {
	UserID    sql.NullInt64
	Action    string
	CreatedAt time.Time
}

// CreateAuditEntry appends an immutable audit log record.
func (q *Queries) CreateAuditEntry(ctx context.Context, arg CreateAuditEntryParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO audit_log (user_id, action, created_at) VALUES (?, ?, ?)`,
		arg.UserID, arg.Action, arg.CreatedAt)
	return err
}

// ListAuditEntriesParams holds pagination bounds for the audit log.
type ListAuditEntriesParams struct {
	Limit  int64
	Offset int64
}

// ListAuditEntries returns audit records joined with the acting user's
// email, newest first.
func (q *Queries) ListAuditEntries(ctx context.Context, arg ListAuditEntriesParams) ([]model.AuditEntryWithUser, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT a.id, a.user_id, a.action, a.created_at, COALESCE(u.email, '') AS user_email
		 FROM audit_log a
		 LEFT JOIN users u ON u.id = a.user_id
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ? OFFSET ?`,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AuditEntryWithUser
	for rows.Next() {
		var e model.AuditEntryWithUser
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.CreatedAt, &e.UserEmail); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountAuditEntries returns the total number of audit records.
func (q *Queries) CountAuditEntries(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n)
	return n, err
}
