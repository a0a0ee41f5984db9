// Entry point of the Valey application: the marketing site, the signup
// wizard, and the authenticated dashboard behind it. It initializes
// configuration, database and session stores, the auth event bus, the
// session hub, HTTP routing, and graceful shutdown.
//
// @title Valey API
// @version 1.0
// @description Accounts, profiles, and onboarding for the Valey platform.
// @contact.name API Support
// @contact.email support@valey.app
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/auth"
	"github.com/valey/valey-go/authevents"
	"github.com/valey/valey-go/avatars"
	"github.com/valey/valey-go/background"
	"github.com/valey/valey-go/config"
	"github.com/valey/valey-go/db"
	_ "github.com/valey/valey-go/docs"
	"github.com/valey/valey-go/onboarding"
	"github.com/valey/valey-go/profiles"
	"github.com/valey/valey-go/session"
	"github.com/valey/valey-go/web"
)

func main() {
	// In production variables come from the environment; .env is a
	// development convenience.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := db.EnableExtensions(pool); err != nil {
		log.Fatalf("Failed to enable extensions: %v", err)
	}
	if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis holds revocable session records. Without it the app still
	// runs; sessions are then governed by JWT expiry alone.
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: redis unreachable, session revocation disabled: %v", err)
		}
		defer rdb.Close()
	}

	avatarStore, err := avatars.NewStore(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize avatar storage: %v", err)
	}
	if !avatarStore.Enabled() {
		log.Println("Avatar storage not configured; uploads will be rejected")
	}

	// The event bus carries every auth state change; the session hub, the
	// SSE stream, and the expiry sweeper all meet here.
	bus := authevents.NewBus()

	profileStore := profiles.NewStore(pool)
	authService := auth.NewService(pool, rdb, *cfg.Auth, bus, profileStore)
	authHandlers := auth.NewHandlers(authService, bus)
	profileHandlers := profiles.NewHandlers(profileStore)

	onboardingRegistry := onboarding.NewRegistry()
	onboardingHandlers := onboarding.NewHandlers(onboardingRegistry)

	// The hub is the single holder of session and profile state. It
	// subscribes to the bus exactly once, here, for the process lifetime.
	tokens := session.NewFileTokenStore(".valey/session-token")
	hub := session.NewHub(authService, profileStore, bus, redirectNavigator{}, tokens)
	if err := hub.Init(context.Background()); err != nil {
		log.Fatalf("Failed to initialize session hub: %v", err)
	}
	defer hub.Close()

	pages := web.NewPages(hub, avatarStore, profileStore)

	sweeper := background.NewExpirySweeper(rdb, bus, time.Minute)
	sweeper.Start()

	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Panic recovery that answers in the application's error format.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Printf("Panic: %+v", rvr)
					writeError(ww, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(ww, r)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Public pages.
	r.Get("/", pages.HandleLanding())

	// Auth API.
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandlers.HandleRegister())
		r.Post("/login", authHandlers.HandleLogin())
		r.Post("/refresh", authHandlers.HandleRefreshToken())
		r.Post("/logout", authHandlers.HandleLogout())
		r.Get("/session", authHandlers.HandleGetSession())
		r.Get("/events", authHandlers.HandleEvents())
	})

	// Onboarding wizard: the public page plus the wizard state API. A
	// signed-in visitor skips the wizard and goes straight to the app.
	r.Route("/onboarding", func(r chi.Router) {
		r.With(web.InverseGuard(hub)).Get("/", pages.HandleOnboardingPage())
		r.Post("/", onboardingHandlers.HandleStart())
		r.Get("/embed", onboardingHandlers.HandleEmbedConfig())
		r.Get("/{id}", onboardingHandlers.HandleGet())
		r.Post("/{id}/fields", onboardingHandlers.HandleSetFields())
		r.Post("/{id}/advance", onboardingHandlers.HandleAdvance())
		r.Post("/{id}/view", onboardingHandlers.HandleToggleView())
	})

	// Profile REST surface, token-protected.
	r.Route("/rest/profiles", func(r chi.Router) {
		r.Use(auth.JWTMiddleware(cfg.Auth))
		r.Get("/me", profileHandlers.HandleGetMe())
		r.Patch("/me", profileHandlers.HandleUpdateMe())
	})

	// Dashboard pages behind the session route guard.
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(web.Guard(hub))
		for _, section := range web.DashboardSections() {
			r.Get("/"+section, pages.HandleDashboardSection(section))
		}
		r.Get("/profile", pages.HandleProfilePage())
		r.Post("/profile", pages.HandleProfileSubmit())
		r.Post("/profile/avatar", pages.HandleAvatarUpload())
		r.Post("/signout", pages.HandleSignOutPage())
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sweeper.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// redirectNavigator satisfies the hub's Navigator. Actual redirects are
// issued per request by the handlers; the hub's navigation is recorded
// here so sign-out always lands somewhere deterministic.
type redirectNavigator struct{}

func (redirectNavigator) Navigate(path string) {
	log.Printf("navigate: %s", path)
}

// writeError is a local helper for the panic recovery middleware; it
// keeps panics in the same error format as everything else.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"error":"Failed to encode error response"}`, http.StatusInternalServerError)
	}
}
