// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"

	"github.com/whirlwindnoa/ams/internal/cache"
	"github.com/whirlwindnoa/ams/internal/middleware"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/render"
	"github.com/whirlwindnoa/ams/internal/session"
	"github.com/whirlwindnoa/ams/internal/store"
	"github.com/whirlwindnoa/ams/internal/testutil"
)

// testTemplates is a minimal template set covering every page the
// handlers render.
var testTemplates = fstest.MapFS{
	"layouts/base.html": {Data: []byte(
		`{{define "base"}}<title>{{.Title}}</title>` +
			`{{if .Flash}}<div class="flash {{.FlashType}}">{{.Flash}}</div>{{end}}` +
			`{{template "content" .}}{{end}}`)},
	"layouts/admin.html":     {Data: []byte(`{{define "nav"}}{{end}}`)},
	"admin/dashboard.html":   {Data: []byte(`{{define "content"}}events: {{.Data.EventCount}} venues: {{.Data.VenueCount}} users: {{.Data.UserCount}}{{end}}`)},
	"admin/events.html":      {Data: []byte(`{{define "content"}}{{range .Data.Events}}<p>{{.Name}}</p>{{end}}{{end}}`)},
	"admin/event_form.html":  {Data: []byte(`{{define "content"}}<form>{{.Data.Event.Name}}</form>{{end}}`)},
	"admin/venues.html":      {Data: []byte(`{{define "content"}}{{range .Data.Venues}}<p>{{.Name}}</p>{{end}}{{end}}`)},
	"admin/users.html":       {Data: []byte(`{{define "content"}}{{range .Data.Users}}<p>{{.Email}} {{elevationLabel .Elevation}}</p>{{end}}{{end}}`)},
	"admin/sessions.html":    {Data: []byte(`{{define "content"}}{{range .Data}}<p>{{.Session.IP}}</p>{{end}}{{end}}`)},
	"admin/audit.html":       {Data: []byte(`{{define "content"}}{{range .Data.Entries}}<p>{{.Action}}</p>{{end}}{{end}}`)},
	"admin/seating.html":     {Data: []byte(`{{define "content"}}{{range .Data.Events}}<p>{{.Name}}</p>{{end}}{{end}}`)},
	"auth/login.html":        {Data: []byte(`{{define "content"}}<form id="login"></form>{{end}}`)},
	"auth/register.html":     {Data: []byte(`{{define "content"}}<form id="register"></form>{{end}}`)},
}

// testEnv bundles the wiring shared by handler tests.
type testEnv struct {
	db       *sql.DB
	queries  *store.Queries
	renderer *render.Renderer
	sessions *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	renderer, err := render.New(render.Config{TemplatesFS: testTemplates})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	return &testEnv{
		db:       db,
		queries:  store.New(db),
		renderer: renderer,
		sessions: session.NewManager(db, cache.NewSessionCache(), session.DefaultConfig("", false)),
	}
}

// asUser attaches a resolved session user to the request context, the
// way the resolve middleware does for live requests.
func asUser(r *http.Request, user model.User) *http.Request {
	cached := model.CachedUser{
		ID:        user.ID,
		Email:     user.Email,
		Elevation: user.Elevation,
	}
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyUser, cached))
}

// postForm builds a POST request with url-encoded form values.
func postForm(target string, values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// postMultipart builds a POST request with multipart form fields and an
// optional file part.
func postMultipart(t *testing.T, target string, fields map[string]string, fileField, fileName string, fileData []byte) *http.Request {
	t.Helper()

	body := new(strings.Builder)
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%q): %v", k, err)
		}
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("writing file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body.String()))
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

// serveWithID routes a single request through chi so {id} resolves.
func serveWithID(pattern string, h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.MethodFunc(r.Method, pattern, h)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

// flashOf decodes the flash cookie set on a response, returning
// (message, type).
func flashOf(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name != "flash" || c.Value == "" {
			continue
		}
		decoded, err := url.QueryUnescape(c.Value)
		if err != nil {
			t.Fatalf("unescaping flash cookie: %v", err)
		}
		flashType, message, _ := strings.Cut(decoded, "|")
		return message, flashType
	}
	return "", ""
}

// sessionToken returns the session cookie value set on a response, or
// "" if none was set.
func sessionToken(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	return ""
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()

	if rec.Code != http.StatusSeeOther {
		body, _ := io.ReadAll(rec.Result().Body)
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusSeeOther, body)
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}
