// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"time"
)

// Session is a time-bounded authorization grant tied to one user and
// identified by an opaque random token.
type Session struct {
	Token     string
	UserID    int64
	Expires   time.Time
	CreatedAt time.Time
	IP        string
	UserAgent string
}

// Expired returns true if the session's absolute expiry has passed.
func (s *Session) Expired() bool {
	return time.Now().After(s.Expires)
}

// CachedUser is the denormalized token-to-user projection held in the
// session cache. It carries no credential and must always be
// reconstructable from the session and user tables.
type CachedUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Elevation Elevation `json:"elevation"`
	Token     string    `json:"-"`
}

// IsApproved returns true if the cached user has been elevated past the
// unapproved tier.
func (u *CachedUser) IsApproved() bool {
	return u.Elevation >= ElevationStaff
}
