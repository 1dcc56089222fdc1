// Command blogd runs the blog server.
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
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"blogd/internal/config"
	"blogd/internal/handler"
	"blogd/internal/handler/api"
	"blogd/internal/imaging"
	"blogd/internal/logging"
	"blogd/internal/middleware"
	"blogd/internal/render"
	"blogd/internal/scheduler"
	"blogd/internal/session"
	"blogd/internal/store"
	"blogd/web"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("blogd %s\n", version)
		return
	}

	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	// Structured logging; warnings and errors also land in the events table.
	logLevel := parseLogLevel(cfg.LogLevel)
	baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logging.NewEventLogHandler(baseHandler, db))
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	sessionManager := session.New(db, cfg.IsDevelopment())

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("locating templates: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	processor := imaging.NewProcessor(cfg.UploadsDir)

	sched := scheduler.New(db, logger, cfg.EventRetentionDays)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	router := buildRouter(routerDeps{
		cfg:            cfg,
		db:             db,
		sessionManager: sessionManager,
		renderer:       renderer,
		processor:      processor,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}

type routerDeps struct {
	cfg            *config.Config
	db             *sql.DB
	sessionManager *scs.SessionManager
	renderer       *render.Renderer
	processor      *imaging.Processor
}

func buildRouter(deps routerDeps) http.Handler {
	queries := store.New(deps.db)

	// The handler and the middleware share the one protection instance so
	// failed attempts and the rate limiter see the same state.
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	authHandler := handler.NewAuthHandler(deps.db, deps.renderer, deps.sessionManager, loginProtection)
	postHandler := handler.NewPostHandler(deps.db, deps.renderer, deps.sessionManager, deps.processor)
	commentHandler := handler.NewCommentHandler(deps.db, deps.renderer, deps.sessionManager)
	profileHandler := handler.NewProfileHandler(deps.db, deps.renderer, deps.sessionManager)
	taxonomyHandler := handler.NewTaxonomyHandler(deps.db, deps.renderer, deps.sessionManager)
	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig(
		[]byte(deps.cfg.SessionSecret), deps.cfg.IsDevelopment()))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.RequestPath)

	// Static assets and uploaded images sit outside the session.
	r.Handle("/static/*", http.StripPrefix("/static/", staticServer()))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(deps.cfg.UploadsDir))))

	// Read-only JSON API, no session or CSRF involved.
	r.Mount("/api/v1", api.New(deps.db, version).Routes())

	// Public HTML pages.
	r.Group(func(r chi.Router) {
		r.Use(deps.sessionManager.LoadAndSave)
		r.Use(csrfMiddleware)
		r.Use(middleware.LoadUser(deps.sessionManager, queries))

		r.Get("/", postHandler.Index)
		r.Get("/posts/{postID}", postHandler.Detail)
		r.Get("/profile/{username}", profileHandler.Show)

		r.Get("/auth/register", authHandler.RegisterForm)
		r.Post("/auth/register", authHandler.Register)
		r.Get("/auth/login", authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
	})

	// Routes requiring a logged-in user.
	r.Group(func(r chi.Router) {
		r.Use(deps.sessionManager.LoadAndSave)
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(deps.sessionManager))
		r.Use(middleware.LoadUser(deps.sessionManager, queries))

		// Category browsing requires a logged-in viewer.
		r.Get("/category/{slug}", taxonomyHandler.CategoryPage)

		r.Get("/posts/new", postHandler.NewForm)
		r.Post("/posts/new", postHandler.Create)
		r.Get("/posts/{postID}/edit", postHandler.EditForm)
		r.Post("/posts/{postID}/edit", postHandler.Update)
		r.Get("/posts/{postID}/delete", postHandler.ConfirmDelete)
		r.Post("/posts/{postID}/delete", postHandler.Delete)

		r.Post("/posts/{postID}/comments", commentHandler.Create)
		r.Get("/posts/{postID}/comments/{commentID}/edit", commentHandler.EditForm)
		r.Post("/posts/{postID}/comments/{commentID}/edit", commentHandler.Update)
		r.Get("/posts/{postID}/comments/{commentID}/delete", commentHandler.ConfirmDelete)
		r.Post("/posts/{postID}/comments/{commentID}/delete", commentHandler.Delete)

		r.Get("/profile/edit", profileHandler.EditForm)
		r.Post("/profile/edit", profileHandler.Update)
		r.Get("/auth/password", authHandler.PasswordForm)
		r.Post("/auth/password", authHandler.ChangePassword)
	})

	// Admin-only taxonomy management.
	r.Route("/admin", func(r chi.Router) {
		r.Use(deps.sessionManager.LoadAndSave)
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(deps.sessionManager))
		r.Use(middleware.LoadUser(deps.sessionManager, queries))
		r.Use(middleware.RequireAdmin)

		r.Get("/categories", taxonomyHandler.AdminCategories)
		r.Get("/categories/new", taxonomyHandler.AdminCategoryNewForm)
		r.Post("/categories/new", taxonomyHandler.AdminCategoryCreate)
		r.Get("/categories/{categoryID}/edit", taxonomyHandler.AdminCategoryEditForm)
		r.Post("/categories/{categoryID}/edit", taxonomyHandler.AdminCategoryUpdate)
		r.Post("/categories/{categoryID}/delete", taxonomyHandler.AdminCategoryDelete)

		r.Get("/locations", taxonomyHandler.AdminLocations)
		r.Get("/locations/new", taxonomyHandler.AdminLocationNewForm)
		r.Post("/locations/new", taxonomyHandler.AdminLocationCreate)
		r.Get("/locations/{locationID}/edit", taxonomyHandler.AdminLocationEditForm)
		r.Post("/locations/{locationID}/edit", taxonomyHandler.AdminLocationUpdate)
		r.Post("/locations/{locationID}/delete", taxonomyHandler.AdminLocationDelete)
	})

	return r
}

func staticServer() http.Handler {
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		// The embed is part of the binary; failure here is a build defect.
		panic(err)
	}
	return http.FileServer(http.FS(staticFS))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
