// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/whirlwindnoa/ams/internal/model"
)

const eventColumns = "id, name, date, booked, capacity, status, notes, venue_id, added_by, created_at"

func scanEvent(row *sql.Row) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Name, &e.Date, &e.Booked, &e.Capacity, &e.Status,
		&e.Notes, &e.VenueID, &e.AddedBy, &e.CreatedAt)
	return e, err
}

// CreateEventParams holds the fields for creating an event.
type CreateEventParams struct {
	Name      string
	Date      sql.NullTime
	Booked    int64
	Capacity  int64
	Status    string
	Notes     string
	VenueID   sql.NullInt64
	AddedBy   int64
	CreatedAt time.Time
}

// CreateEvent inserts a new event and returns the stored row.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO events (name, date, booked, capacity, status, notes, venue_id, added_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+eventColumns,
		arg.Name, arg.Date, arg.Booked, arg.Capacity, arg.Status, arg.Notes,
		arg.VenueID, arg.AddedBy, arg.CreatedAt)
	return scanEvent(row)
}

// GetEventByID returns the event with the given ID.
func (q *Queries) GetEventByID(ctx context.Context, id int64) (model.Event, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// ListEvents returns all events joined with the creating user's email,
// undated events last, dated events in ascending date order.
func (q *Queries) ListEvents(ctx context.Context) ([]model.EventWithCreator, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT e.id, e.name, e.date, e.booked, e.capacity, e.status, e.notes,
		        e.venue_id, e.added_by, e.created_at,
		        COALESCE(u.email, '') AS added_by_email
		 FROM events e
		 LEFT JOIN users u ON u.id = e.added_by
		 ORDER BY e.date IS NULL, e.date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.EventWithCreator
	for rows.Next() {
		var e model.EventWithCreator
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.Booked, &e.Capacity, &e.Status,
			&e.Notes, &e.VenueID, &e.AddedBy, &e.CreatedAt, &e.AddedByEmail); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateEventParams holds the fields for updating an event.
type UpdateEventParams struct {
	Name     string
	Date     sql.NullTime
	Booked   int64
	Capacity int64
	Status   string
	Notes    string
	VenueID  sql.NullInt64
	ID       int64
}

// UpdateEvent replaces an event's mutable fields.
func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE events
		 SET name = ?, date = ?, booked = ?, capacity = ?, status = ?, notes = ?, venue_id = ?
		 WHERE id = ?`,
		arg.Name, arg.Date, arg.Booked, arg.Capacity, arg.Status, arg.Notes, arg.VenueID, arg.ID)
	return err
}

// DeleteEvent removes an event.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}
