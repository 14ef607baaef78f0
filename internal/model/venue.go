// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Venue represents a physical location that can host events.
type Venue struct {
	ID        int64
	Name      string
	Location  string
	Capacity  int64
	Image     sql.NullString // relative path under the uploads dir
	CreatedAt time.Time
}

// HasImage returns true if the venue has an uploaded image.
func (v *Venue) HasImage() bool {
	return v.Image.Valid && v.Image.String != ""
}
