package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/whirlwindnoa/ams/internal/cache"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/session"
	"github.com/whirlwindnoa/ams/internal/testutil"
)

func newTestManager(t *testing.T) (*session.Manager, func()) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	sm := session.NewManager(db, cache.NewSessionCache(), session.DefaultConfig("", false))
	return sm, cleanup
}

func issueFor(t *testing.T, sm *session.Manager, user model.User) string {
	t.Helper()
	token, err := sm.Issue(context.Background(), user, "198.51.100.7", "test-agent")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

// echoUser is a terminal handler that reports the resolved user, if any.
func echoUser(t *testing.T, got **model.CachedUser) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = GetUser(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestResolveUserNoCookie(t *testing.T) {
	sm, cleanup := newTestManager(t)
	defer cleanup()

	var got *model.CachedUser
	handler := ResolveUser(sm)(echoUser(t, &got))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got != nil {
		t.Errorf("user in context without a cookie: %+v", got)
	}
}

func TestResolveUserValidSession(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	sm := session.NewManager(db, cache.NewSessionCache(), session.DefaultConfig("", false))

	user := testutil.CreateUser(t, db, "resolver@example.com", model.ElevationStaff)
	token := issueFor(t, sm, user)

	var got *model.CachedUser
	handler := ResolveUser(sm)(echoUser(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got == nil {
		t.Fatal("no user in context for a valid session")
	}
	if got.ID != user.ID || got.Email != user.Email {
		t.Errorf("resolved user = %+v, want id=%d email=%s", got, user.ID, user.Email)
	}
	if got.Elevation != model.ElevationStaff {
		t.Errorf("Elevation = %d, want %d", got.Elevation, model.ElevationStaff)
	}
}

func TestResolveUserStaleCookieCleared(t *testing.T) {
	sm, cleanup := newTestManager(t)
	defer cleanup()

	var got *model.CachedUser
	handler := ResolveUser(sm)(echoUser(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "0000000000000000000000000000000000000000000000000000000000000000"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (request proceeds without a user)", rec.Code)
	}
	if got != nil {
		t.Errorf("user in context for a stale cookie: %+v", got)
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("stale token cookie was not cleared")
	}
}

func TestRequireUserRedirectsAnonymous(t *testing.T) {
	handler := RequireUser()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a user")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRequireElevation(t *testing.T) {
	tests := []struct {
		name       string
		user       *model.CachedUser
		minimum    model.Elevation
		wantStatus int
	}{
		{
			name:       "anonymous redirected",
			user:       nil,
			minimum:    model.ElevationStaff,
			wantStatus: http.StatusSeeOther,
		},
		{
			name:       "below floor forbidden",
			user:       &model.CachedUser{ID: 1, Elevation: model.ElevationStaff},
			minimum:    model.ElevationManager,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "at floor allowed",
			user:       &model.CachedUser{ID: 1, Elevation: model.ElevationManager},
			minimum:    model.ElevationManager,
			wantStatus: http.StatusOK,
		},
		{
			name:       "above floor allowed",
			user:       &model.CachedUser{ID: 1, Elevation: model.ElevationSuperuser},
			minimum:    model.ElevationManager,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unapproved blocked from staff pages",
			user:       &model.CachedUser{ID: 1, Elevation: model.ElevationUnapproved},
			minimum:    model.ElevationStaff,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireElevation(tt.minimum)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.user != nil {
				ctx := context.WithValue(req.Context(), ContextKeyUser, *tt.user)
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestGetUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserID(req); got != 0 {
		t.Errorf("GetUserID without user = %d, want 0", got)
	}

	ctx := context.WithValue(req.Context(), ContextKeyUser, model.CachedUser{ID: 42})
	if got := GetUserID(req.WithContext(ctx)); got != 42 {
		t.Errorf("GetUserID = %d, want 42", got)
	}
}
