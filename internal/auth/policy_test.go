package auth

import (
	"errors"
	"testing"

	"github.com/whirlwindnoa/ams/internal/model"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name    string
		actor   model.Elevation
		minimum model.Elevation
		want    bool
	}{
		{"equal meets floor", model.ElevationManager, model.ElevationManager, true},
		{"above meets floor", model.ElevationSuperuser, model.ElevationManager, true},
		{"below fails floor", model.ElevationStaff, model.ElevationManager, false},
		{"unapproved fails staff floor", model.ElevationUnapproved, model.ElevationStaff, false},
		{"zero floor always passes", model.ElevationUnapproved, model.ElevationUnapproved, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.actor, tt.minimum); got != tt.want {
				t.Errorf("Allowed(%d, %d) = %v, want %v", tt.actor, tt.minimum, got, tt.want)
			}
		})
	}
}

func TestCanModifyUser(t *testing.T) {
	tests := []struct {
		name    string
		actor   model.CachedUser
		target  model.User
		minimum model.Elevation
		wantErr error
	}{
		{
			name:    "manager modifies staff",
			actor:   model.CachedUser{ID: 1, Elevation: model.ElevationManager},
			target:  model.User{ID: 2, Elevation: model.ElevationStaff},
			minimum: model.ElevationManager,
		},
		{
			name:    "actor below floor",
			actor:   model.CachedUser{ID: 1, Elevation: model.ElevationStaff},
			target:  model.User{ID: 2, Elevation: model.ElevationUnapproved},
			minimum: model.ElevationManager,
			wantErr: ErrInsufficientElevation,
		},
		{
			name:    "self action rejected regardless of elevation",
			actor:   model.CachedUser{ID: 1, Elevation: model.ElevationSuperuser},
			target:  model.User{ID: 1, Elevation: model.ElevationSuperuser},
			minimum: model.ElevationManager,
			wantErr: ErrSelfAction,
		},
		{
			name:    "peer at same elevation rejected despite meeting floor",
			actor:   model.CachedUser{ID: 1, Elevation: model.ElevationManager},
			target:  model.User{ID: 2, Elevation: model.ElevationManager},
			minimum: model.ElevationManager,
			wantErr: ErrTargetNotBelow,
		},
		{
			name:    "superior target rejected",
			actor:   model.CachedUser{ID: 1, Elevation: model.ElevationManager},
			target:  model.User{ID: 2, Elevation: model.ElevationSuperuser},
			minimum: model.ElevationManager,
			wantErr: ErrTargetNotBelow,
		},
		{
			name:    "superuser modifies manager",
			actor:   model.CachedUser{ID: 1, Elevation: model.ElevationSuperuser},
			target:  model.User{ID: 2, Elevation: model.ElevationManager},
			minimum: model.ElevationManager,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanModifyUser(&tt.actor, &tt.target, tt.minimum)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CanModifyUser() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanModifyEvent(t *testing.T) {
	event := model.Event{ID: 5}
	event.AddedBy.Int64 = 7
	event.AddedBy.Valid = true

	t.Run("manager may modify any event", func(t *testing.T) {
		actor := model.CachedUser{ID: 99, Elevation: model.ElevationManager}
		if !CanModifyEvent(&actor, &event) {
			t.Error("CanModifyEvent = false, want true for manager")
		}
	})

	t.Run("creator may modify own event", func(t *testing.T) {
		actor := model.CachedUser{ID: 7, Elevation: model.ElevationStaff}
		if !CanModifyEvent(&actor, &event) {
			t.Error("CanModifyEvent = false, want true for creator")
		}
	})

	t.Run("other staff may not modify", func(t *testing.T) {
		actor := model.CachedUser{ID: 8, Elevation: model.ElevationStaff}
		if CanModifyEvent(&actor, &event) {
			t.Error("CanModifyEvent = true, want false for non-creator staff")
		}
	})
}

func TestCheckCredential(t *testing.T) {
	if !CheckCredential("secret", "secret") {
		t.Error("CheckCredential with matching values = false")
	}
	if CheckCredential("secret", "other") {
		t.Error("CheckCredential with different values = true")
	}
	if CheckCredential("", "secret") {
		t.Error("CheckCredential with empty submission = true")
	}
}
