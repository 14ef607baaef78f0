// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth provides the elevation-based authorization policy and
// credential verification.
package auth

import (
	"errors"

	"github.com/whirlwindnoa/ams/internal/model"
)

// Policy errors. ErrSelfAction and ErrTargetNotBelow both surface as
// insufficient permission to the caller; they are distinct so audit
// logging and tests can tell them apart.
var (
	ErrInsufficientElevation = errors.New("auth: insufficient elevation")
	ErrSelfAction            = errors.New("auth: cannot act on own account")
	ErrTargetNotBelow        = errors.New("auth: target elevation not below actor")
)

// Allowed reports whether an actor's elevation meets an operation's
// minimum. Elevations are totally ordered; there are no per-permission
// grants.
func Allowed(actor model.Elevation, minimum model.Elevation) bool {
	return actor >= minimum
}

// CanModifyUser checks whether the actor may promote, demote or delete
// the target user under an operation's minimum elevation. Three checks
// apply, all of them, in order:
//
//  1. the actor meets the elevation floor,
//  2. the actor is not the target (no self-demotion or self-deletion
//     through the privileged path),
//  3. the target's elevation is strictly below the actor's, so nobody
//     modifies a peer or a superior even when they clear the floor.
func CanModifyUser(actor *model.CachedUser, target *model.User, minimum model.Elevation) error {
	if !Allowed(actor.Elevation, minimum) {
		return ErrInsufficientElevation
	}
	if actor.ID == target.ID {
		return ErrSelfAction
	}
	if target.Elevation >= actor.Elevation {
		return ErrTargetNotBelow
	}
	return nil
}

// CanModifyEvent reports whether the actor may edit or delete an event:
// managers and above may touch any event, others only their own.
func CanModifyEvent(actor *model.CachedUser, event *model.Event) bool {
	if actor.Elevation >= model.ElevationManager {
		return true
	}
	return event.CreatedByUser(actor.ID)
}
