// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/whirlwindnoa/ams/internal/model"
)

func testTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(
			`{{define "base"}}<html><body>{{if .Flash}}<div class="flash {{.FlashType}}">{{.Flash}}</div>{{end}}{{template "content" .}}</body></html>{{end}}`,
		)},
		"layouts/admin.html": {Data: []byte(
			`{{define "nav"}}<nav>{{if .User}}{{.User.Email}}{{end}}</nav>{{end}}`,
		)},
		"partials/footer.html": {Data: []byte(
			`{{define "footer"}}<footer>{{.CurrentYear}}</footer>{{end}}`,
		)},
		"admin/dashboard.html": {Data: []byte(
			`{{define "content"}}{{template "nav" .}}<h1>{{.Title}}</h1>{{template "footer" .}}{{end}}`,
		)},
		"auth/login.html": {Data: []byte(
			`{{define "content"}}<form>{{.Title}}</form>{{end}}`,
		)},
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Config{TemplatesFS: testTemplatesFS(), IsDev: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNewParsesAdminAndAuthTemplates(t *testing.T) {
	r := newTestRenderer(t)

	for _, name := range []string{"admin/dashboard", "auth/login"} {
		if _, ok := r.templates[name]; !ok {
			t.Errorf("template %q not parsed", name)
		}
	}
}

func TestRenderAdminPage(t *testing.T) {
	r := newTestRenderer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	err := r.Render(rec, req, "admin/dashboard", TemplateData{
		Title: "Dashboard",
		User:  &model.CachedUser{ID: 1, Email: "admin@example.com"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Dashboard</h1>") {
		t.Errorf("body missing title: %s", body)
	}
	if !strings.Contains(body, "admin@example.com") {
		t.Errorf("body missing user email: %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r := newTestRenderer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := r.Render(rec, req, "admin/missing", TemplateData{}); err == nil {
		t.Fatal("Render should fail for an unknown template")
	}
}

func TestFlashRoundTrip(t *testing.T) {
	r := newTestRenderer(t)

	// Queue a flash as a redirecting handler would
	setRec := httptest.NewRecorder()
	r.SetFlash(setRec, "Event created", "success")

	cookies := setRec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != flashCookie {
		t.Fatalf("SetFlash cookies = %+v", cookies)
	}

	// The next request presents the cookie and gets the message once
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	if err := r.Render(rec, req, "admin/dashboard", TemplateData{Title: "x"}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "Event created") || !strings.Contains(body, `class="flash success"`) {
		t.Errorf("flash not rendered: %s", body)
	}

	// Render clears the cookie so the flash shows only once
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("flash cookie not cleared after render")
	}
}

func TestTemplateFuncs_FormatDate(t *testing.T) {
	funcs := (&Renderer{}).templateFuncs()

	formatDate := funcs["formatDate"].(func(time.Time) string)
	testTime := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	if got := formatDate(testTime); got != "Mar 15, 2025" {
		t.Errorf("formatDate() = %q, want %q", got, "Mar 15, 2025")
	}
}

func TestTemplateFuncs_Markdown(t *testing.T) {
	r := &Renderer{
		markdown:  goldmark.New(),
		sanitizer: bluemonday.UGCPolicy(),
	}
	funcs := r.templateFuncs()
	markdown := funcs["markdown"].(func(string) template.HTML)

	got := string(markdown("**bold** note"))
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("markdown() = %q, want rendered strong tag", got)
	}

	// Script tags never survive sanitization
	got = string(markdown(`hello <script>alert(1)</script>`))
	if strings.Contains(got, "<script>") {
		t.Errorf("markdown() kept script tag: %q", got)
	}
}

func TestTemplateFuncs_UASummary(t *testing.T) {
	funcs := (&Renderer{}).templateFuncs()
	uaSummary := funcs["uaSummary"].(func(string) string)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"chrome on windows",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Chrome on Windows",
		},
		{"empty", "", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uaSummary(tt.raw); got != tt.want {
				t.Errorf("uaSummary(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTemplateFuncs_ElevationLabel(t *testing.T) {
	funcs := (&Renderer{}).templateFuncs()
	label := funcs["elevationLabel"].(func(model.Elevation) string)

	if got := label(model.ElevationManager); got != "manager" {
		t.Errorf("elevationLabel(manager) = %q", got)
	}
}

func TestTemplateFuncs_Title(t *testing.T) {
	funcs := (&Renderer{}).templateFuncs()
	titleFn := funcs["title"].(func(string) string)

	if got := titleFn("upcoming events"); got != "Upcoming Events" {
		t.Errorf("title() = %q, want %q", got, "Upcoming Events")
	}
}
