// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/whirlwindnoa/ams/internal/model"
)

const venueColumns = "id, name, location, capacity, image, created_at"

func scanVenue(row *sql.Row) (model.Venue, error) {
	var v model.Venue
	err := row.Scan(&v.ID, &v.Name, &v.Location, &v.Capacity, &v.Image, &v.CreatedAt)
	return v, err
}

// CreateVenueParams holds the fields for creating a venue.
type CreateVenueParams struct {
	Name      string
	Location  string
	Capacity  int64
	Image     sql.NullString
	CreatedAt time.Time
}

// CreateVenue inserts a new venue and returns the stored row.
func (q *Queries) CreateVenue(ctx context.Context, arg CreateVenueParams) (model.Venue, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO venues (name, location, capacity, image, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING `+venueColumns,
		arg.Name, arg.Location, arg.Capacity, arg.Image, arg.CreatedAt)
	return scanVenue(row)
}

// GetVenueByID returns the venue with the given ID.
func (q *Queries) GetVenueByID(ctx context.Context, id int64) (model.Venue, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = ?`, id)
	return scanVenue(row)
}

// ListVenues returns all venues in name order.
func (q *Queries) ListVenues(ctx context.Context) ([]model.Venue, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+venueColumns+` FROM venues ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Location, &v.Capacity, &v.Image, &v.CreatedAt); err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// DeleteVenue removes a venue. Events referencing it keep a null venue.
func (q *Queries) DeleteVenue(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM venues WHERE id = ?`, id)
	return err
}
