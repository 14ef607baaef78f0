// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Event statuses.
const (
	EventStatusDraft     = "draft"
	EventStatusScheduled = "scheduled"
	EventStatusCancelled = "cancelled"
)

// MaxEventCapacity is the highest accepted event capacity.
const MaxEventCapacity = 9999

// Event represents a scheduled event managed through the portal.
type Event struct {
	ID        int64
	Name      string
	Date      sql.NullTime
	Booked    int64
	Capacity  int64
	Status    string
	Notes     string
	VenueID   sql.NullInt64
	AddedBy   sql.NullInt64
	CreatedAt time.Time
}

// EventWithCreator is an event joined with the creating user's email for
// list views. The email is empty if the creator has been deleted.
type EventWithCreator struct {
	Event
	AddedByEmail string
}

// CreatedByUser returns true if the event was added by the given user.
func (e *Event) CreatedByUser(userID int64) bool {
	return e.AddedBy.Valid && e.AddedBy.Int64 == userID
}
