// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including User, Session, Event, Venue and audit log structures.
package model

import (
	"time"
)

// Elevation is the privilege tier of a user. Tiers form a total order:
// a higher value always implies every permission of a lower one.
type Elevation int64

// Elevation tiers.
const (
	ElevationUnapproved Elevation = 0
	ElevationStaff      Elevation = 1
	ElevationManager    Elevation = 2
	ElevationSuperuser  Elevation = 3
)

// MaxElevation is the highest assignable elevation tier.
const MaxElevation = ElevationSuperuser

// Valid returns true if the elevation is within the known tier range.
func (e Elevation) Valid() bool {
	return e >= ElevationUnapproved && e <= ElevationSuperuser
}

// Label returns a human-readable name for the elevation tier.
func (e Elevation) Label() string {
	switch e {
	case ElevationUnapproved:
		return "unapproved"
	case ElevationStaff:
		return "staff"
	case ElevationManager:
		return "manager"
	case ElevationSuperuser:
		return "superuser"
	default:
		return "unknown"
	}
}

// User represents a portal staff account.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // Never expose in JSON
	Elevation Elevation `json:"elevation"`
	CreatedAt time.Time `json:"created_at"`
}

// IsApproved returns true if the user has been elevated past the
// unapproved tier and may use authenticated portal features.
func (u *User) IsApproved() bool {
	return u.Elevation >= ElevationStaff
}

// IsManager returns true if the user has manager elevation or above.
func (u *User) IsManager() bool {
	return u.Elevation >= ElevationManager
}
