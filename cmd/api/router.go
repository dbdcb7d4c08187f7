package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/koinonia/koinonia/internal/config"
	"github.com/koinonia/koinonia/internal/handler"
	"github.com/koinonia/koinonia/internal/metrics"
	"github.com/koinonia/koinonia/internal/middleware"
)

var errConnect = errors.New("dependency connection failed")

// routerDeps collects everything the HTTP layer needs.
type routerDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder metrics.Recorder
	gatherer prometheus.Gatherer

	db      handler.HealthChecker
	cache   handler.HealthChecker
	limiter middleware.RateLimiter

	sessions    middleware.TokenVerifier
	registrar   handler.Registrar
	auth        handler.Authenticator
	users       handler.UserReader
	communities handler.Communities
	sermons     handler.Sermons
	tags        handler.Tags

	version string
}

// newRouter configures the chi router with all routes and middleware.
func newRouter(d routerDeps) *chi.Mux {
	cfg := d.cfg
	logger := d.logger

	h := handler.New(d.version)
	healthHandler := handler.NewHealthHandler(logger,
		handler.Dependency{Name: "postgres", Checker: d.db},
		handler.Dependency{Name: "redis", Checker: d.cache},
	)
	userHandler := handler.NewUserHandler(d.registrar, d.auth, d.users, logger)
	communityHandler := handler.NewCommunityHandler(d.communities, logger)
	sermonHandler := handler.NewSermonHandler(d.sermons, logger)
	tagHandler := handler.NewTagHandler(d.tags, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, d.recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{HSTS: !cfg.IsDevelopment()}))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxAge:         middleware.DefaultCORSConfig().MaxAge,
	}))

	// Probes and metrics
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Method(http.MethodGet, "/metrics", handler.NewMetricsHandler(d.gatherer))
	r.Get("/", h.Hello)

	requireUser := middleware.Authenticate(d.sessions, logger)
	limit := func(scope string) func(http.Handler) http.Handler {
		return middleware.RateLimitIP(scope, middleware.RateLimitConfig{
			Logger:    logger,
			Limiter:   d.limiter,
			Recorder:  d.recorder,
			Enabled:   cfg.RateLimitAuthEnabled,
			PerMinute: cfg.RateLimitAuthPerMinute,
			Burst:     cfg.RateLimitAuthBurst,
		})
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

		r.Route("/users", func(r chi.Router) {
			r.With(limit("register")).Post("/", userHandler.Register)
			r.With(limit("login")).Post("/login", userHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Get("/by-email/search", userHandler.FindByEmail)
				r.Get("/{id}", userHandler.Get)
				r.Patch("/{id}", userHandler.Update)
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(limit("refresh")).Post("/refresh", userHandler.Refresh)
			r.Post("/logout", userHandler.Logout)
			r.With(requireUser).Get("/me", userHandler.Me)
		})

		r.Route("/communities", func(r chi.Router) {
			r.Get("/", communityHandler.List)
			r.Get("/{id}", communityHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/", communityHandler.Create)
				r.Post("/{id}/members", communityHandler.AddMember)
				r.Get("/{id}/members", communityHandler.ListMembers)
			})
		})

		r.Route("/sermons", func(r chi.Router) {
			r.Get("/", sermonHandler.List)
			r.Get("/{id}", sermonHandler.Get)
			r.Get("/{id}/tags", sermonHandler.ListTags)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/", sermonHandler.Create)
				r.Post("/{id}/tags", sermonHandler.AttachTags)
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tagHandler.List)
			r.With(requireUser).Post("/", tagHandler.Upsert)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
