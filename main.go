// Entry point of the Natours API server. Initializes configuration, the
// database pool and migrations, wires services and handlers together with
// manual dependency injection, sets up the chi router and middleware
// stack, and runs the HTTP server with graceful shutdown.
//
// @title Natours API
// @version 1.0
// @description Tour booking REST API: tour catalog, accounts and session management.
// @contact.name API Support
// @contact.email admin@natours.io
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/auth"
	"github.com/user/natours-go/background"
	"github.com/user/natours-go/config"
	"github.com/user/natours-go/db"
	_ "github.com/user/natours-go/docs" // generated Swagger docs
	"github.com/user/natours-go/mailer"
	"github.com/user/natours-go/metrics"
	"github.com/user/natours-go/middleware"
	"github.com/user/natours-go/tours"
	"github.com/user/natours-go/users"
)

func main() {
	// .env is a development convenience; production sets real env vars.
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

	if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// The sweeper runs until the stop channel closes at shutdown.
	sweeperStopChan := make(chan struct{})
	go background.StartResetTokenSweeper(pool, sweeperStopChan)

	responder := apperror.NewResponder(!cfg.IsProduction(), log.Default())

	smtpMailer, err := mailer.New(cfg.SMTP)
	if err != nil {
		log.Fatalf("Failed to create mailer: %v", err)
	}

	// Manual dependency injection: services get the pool and config,
	// handlers get services and the responder.
	authService := auth.NewService(pool, *cfg.Auth, smtpMailer)
	authHandlers := auth.NewHandlers(authService, responder, cfg)

	userService := users.NewService(pool)
	userHandlers := users.NewHandlers(userService, responder)

	tourService := tours.NewService(pool)
	tourHandlers := tours.NewHandlers(tourService, responder)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	rateLimiter := middleware.NewRateLimiter(*cfg.RateLimit)
	defer rateLimiter.Stop()

	r := chi.NewRouter()

	// Chi requires all middleware registered before any routes.
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodyBytes(1 << 20)) // 1 MiB request bodies
	r.Use(collector.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	protect := authService.Protect(responder)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		auth.WriteJSON(w, http.StatusOK, auth.Envelope{
			Status:  "success",
			Message: "Natours API is running",
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Method(http.MethodGet, "/metrics", metrics.Handler(registry))

	// The rate limit covers the API surface only; liveness, swagger and
	// the scrape endpoint stay unthrottled.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimiter.Middleware(responder, collector.RecordRateLimited))

		r.Route("/users", func(r chi.Router) {
			r.Post("/signup", authHandlers.HandleSignup())
			r.Post("/login", authHandlers.HandleLogin())
			r.Post("/forgotPassword", authHandlers.HandleForgotPassword())
			r.Patch("/resetPassword/{token}", authHandlers.HandleResetPassword())

			// Everything below needs a valid session.
			r.Group(func(r chi.Router) {
				r.Use(protect)

				r.Patch("/updateMyPassword", authHandlers.HandleUpdatePassword())
				r.Get("/me", userHandlers.HandleGetMe())
				r.Patch("/updateMe", userHandlers.HandleUpdateMe())
				r.Delete("/deleteMe", userHandlers.HandleDeleteMe())

				// Administrative account management.
				r.Group(func(r chi.Router) {
					r.Use(auth.RestrictTo(responder, auth.RoleAdmin))

					r.Get("/", userHandlers.HandleList())
					r.Post("/", userHandlers.HandleCreate())
					r.Get("/{id}", userHandlers.HandleGet())
					r.Patch("/{id}", userHandlers.HandleUpdate())
					r.Delete("/{id}", userHandlers.HandleDelete())
				})
			})
		})

		r.Route("/tours", func(r chi.Router) {
			r.Get("/", tourHandlers.HandleList())
			r.Get("/top-5-cheap", tourHandlers.HandleTopTours())
			r.Get("/tour-stats", tourHandlers.HandleStats())
			r.Get("/{id}", tourHandlers.HandleGet())

			r.Group(func(r chi.Router) {
				r.Use(protect)

				r.With(auth.RestrictTo(responder, auth.RoleAdmin, auth.RoleLeadGuide, auth.RoleGuide)).
					Get("/monthly-plan/{year}", tourHandlers.HandleMonthlyPlan())

				r.Group(func(r chi.Router) {
					r.Use(auth.RestrictTo(responder, auth.RoleAdmin, auth.RoleLeadGuide))

					r.Post("/", tourHandlers.HandleCreate())
					r.Patch("/{id}", tourHandlers.HandleUpdate())
					r.Delete("/{id}", tourHandlers.HandleDelete())
				})
			})
		})
	})

	// Unmatched routes get the same envelope as every other failure.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responder.Write(w, req, apperror.NewNotFoundError(
			fmt.Sprintf("Can't find %s on this server!", req.URL.Path), nil))
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
		log.Printf("Server starting on %s (%s)", addr, cfg.Server.Env)
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

	close(sweeperStopChan)

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
