// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// AuditEntry is an immutable append-only record of a privileged action.
// UserID is null for system-originated entries (forwarded log records).
type AuditEntry struct {
	ID        int64
	UserID    sql.NullInt64
	Action    string
	CreatedAt time.Time
}

// AuditEntryWithUser is an audit entry joined with the acting user's
// email for the audit log page. The email is empty for system entries
// and for users that have since been deleted.
type AuditEntryWithUser struct {
	AuditEntry
	UserEmail string
}
