// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/whirlwindnoa/ams/internal/cache"
	"github.com/whirlwindnoa/ams/internal/config"
	"github.com/whirlwindnoa/ams/internal/geoip"
	"github.com/whirlwindnoa/ams/internal/handler"
	"github.com/whirlwindnoa/ams/internal/imaging"
	"github.com/whirlwindnoa/ams/internal/logging"
	"github.com/whirlwindnoa/ams/internal/middleware"
	"github.com/whirlwindnoa/ams/internal/model"
	"github.com/whirlwindnoa/ams/internal/render"
	"github.com/whirlwindnoa/ams/internal/session"
	"github.com/whirlwindnoa/ams/internal/store"
	"github.com/whirlwindnoa/ams/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "AMS - Admin Management System\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AMS_SECRET_KEY                Request forgery protection key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AMS_DB_PATH                   SQLite database path (default: ./data/ams.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AMS_SERVER_PORT               Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AMS_ENV                       Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AMS_UPLOADS_DIR               Venue image directory (default: ./uploads)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AMS_SESSION_TTL               Session lifetime (default: 730h)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AMS_SESSION_REFRESH_WINDOW    Sliding refresh window (default: 168h)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AMS_MAX_SESSIONS_PER_USER     Concurrent session cap (default: 10)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AMS_GEOIP_DB_PATH             GeoLite2 country database (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Printf("ams %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := logging.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data and uploads directories exist
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also forward WARN and ERROR records to the audit log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewAuditLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("audit log integration enabled", "min_level", "warn")

	// Session manager over the shared in-process token cache
	sessionCache := cache.NewSessionCache()
	sessions := session.NewManager(db, sessionCache, session.Config{
		TTL:           cfg.SessionTTL,
		RefreshWindow: cfg.RefreshWindow,
		MaxPerUser:    cfg.MaxSessions,
		CookieDomain:  cfg.CookieDomain,
		Secure:        !cfg.IsDevelopment(),
	})
	slog.Info("session manager initialized",
		"ttl", cfg.SessionTTL,
		"refresh_window", cfg.RefreshWindow,
		"max_per_user", cfg.MaxSessions,
	)

	// GeoIP lookup for the sessions page (optional)
	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		return fmt.Errorf("opening GeoIP database: %w", err)
	}
	defer func() { _ = geo.Close() }()
	if geo.IsEnabled() {
		slog.Info("GeoIP lookup enabled", "path", cfg.GeoIPDBPath)
	}

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS: templatesFS,
		IsDev:       cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	processor := imaging.NewProcessor(cfg.UploadsDir)

	// Create router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))                    // Gzip compression with level 5
	r.Use(chimw.GetHead)                        // Handle HEAD requests for uptime monitoring
	r.Use(middleware.Timeout(30 * time.Second)) // 30 second request timeout

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	r.Use(middleware.SecurityHeaders(securityConfig))
	slog.Info("security headers middleware initialized", "hsts", !cfg.IsDevelopment())

	// Every request resolves its session cookie, authenticated or not
	r.Use(middleware.ResolveUser(sessions))

	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SecretKey), cfg.IsDevelopment())
	csrfMiddleware := middleware.CSRF(csrfConfig)
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("login protection initialized",
		"ip_rate_limit", "0.5 req/s",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
	)

	// Defense-in-depth on auth routes: 10 req/s with burst of 20 per IP
	publicRateLimiter := middleware.NewGlobalRateLimiter(10.0, 20)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(db, renderer, sessions, loginProtection)
	adminHandler := handler.NewAdminHandler(db, renderer)
	userHandler := handler.NewUserHandler(db, renderer, sessions, geo)
	eventHandler := handler.NewEventHandler(db, renderer)
	venueHandler := handler.NewVenueHandler(db, renderer, processor)
	auditHandler := handler.NewAuditHandler(db, renderer)

	// Public auth routes (with CSRF and rate limiting)
	r.Group(func(r chi.Router) {
		r.Use(publicRateLimiter.Middleware())
		r.Use(csrfMiddleware)
		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.Get(handler.RouteRegister, authHandler.RegisterForm)
		r.With(loginProtection.Middleware()).Post("/api/auth/login", authHandler.Login)
		r.With(loginProtection.Middleware()).Post("/api/auth/register", authHandler.Register)
		r.Get("/api/auth/logout", authHandler.Logout)
		r.Post("/api/auth/logout", authHandler.Logout)
	})

	// The portal root redirects into the admin area
	r.Get(handler.RouteRoot, func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/admin", http.StatusSeeOther)
	})

	// Admin routes (protected with CSRF)
	r.Route("/admin", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.RequireUser())

		// Any authenticated user may see their own sessions
		r.Get(handler.RouteSessions, userHandler.Sessions)
		r.Post(handler.RouteSessions+"/revoke", userHandler.RevokeSession)

		// Staff routes - unapproved accounts stop here
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireElevation(model.ElevationStaff))

			r.Get(handler.RouteRoot, adminHandler.Dashboard)
			r.Get(handler.RouteSeating, adminHandler.Seating)

			// Event management
			r.Get(handler.RouteEvents, eventHandler.List)
			r.Get(handler.RouteEvents+handler.RouteSuffixNew, eventHandler.NewForm)
			r.Post(handler.RouteEvents, eventHandler.Create)
			r.Get(handler.RouteEventsID+"/edit", eventHandler.EditForm)
			r.Put(handler.RouteEventsID, eventHandler.Update)
			r.Post(handler.RouteEventsID, eventHandler.Update) // HTML forms can't send PUT
			r.Post(handler.RouteEventsID+"/delete", eventHandler.Delete)

			// Venue overview
			r.Get(handler.RouteVenues, venueHandler.List)
		})

		// Manager routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireElevation(model.ElevationManager))

			r.Get(handler.RouteUsers, userHandler.List)
			r.Post(handler.RouteUsersID+"/promote", userHandler.Promote)
			r.Post(handler.RouteUsersID+"/demote", userHandler.Demote)
			r.Post(handler.RouteUsersID+"/delete", userHandler.Delete)

			r.Get(handler.RouteAudit, auditHandler.List)

			r.Post(handler.RouteVenuesID+"/delete", venueHandler.Delete)
		})

		// Superuser routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireElevation(model.ElevationSuperuser))

			r.Post(handler.RouteVenues, venueHandler.Create)
		})
	})

	// Static file serving
	staticFS, err := fs.Sub(web.Static, "static/dist")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/dist/*", http.StripPrefix("/static/dist/", http.FileServer(http.FS(staticFS))))

	// Serve uploaded venue images
	uploadsHandler := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir)))
	r.Handle("/uploads/*", uploadsHandler)

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for image uploads on slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
