package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-rating/internal/aggregation"
	"github.com/Clark-Hu/store-rating/internal/auth"
	"github.com/Clark-Hu/store-rating/internal/catalog"
	"github.com/Clark-Hu/store-rating/internal/config"
	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/store"
)

// Deps bundles the services the HTTP layer dispatches to.
type Deps struct {
	Store    *store.Store
	Auth     *auth.Service
	Catalog  *catalog.Service
	Ratings  *aggregation.Service
	Gatherer prometheus.Gatherer
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg         config.Config
	store       *store.Store
	auth        *auth.Service
	catalog     *catalog.Service
	ratings     *aggregation.Service
	gatherer    prometheus.Gatherer
	authLimiter *ipRateLimiter
	logger      *zap.Logger
	router      chi.Router
	httpSrv     *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:         cfg,
		store:       deps.Store,
		auth:        deps.Auth,
		catalog:     deps.Catalog,
		ratings:     deps.Ratings,
		gatherer:    deps.Gatherer,
		authLimiter: newIPRateLimiter(cfg.AuthRateLimitPerMin),
		logger:      logger.Named("http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	s.router = r
	s.registerRoutes()

	s.httpSrv = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSecs) * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(s.rateLimitAuth).Post("/signup", s.handleSignup)
			r.With(s.rateLimitAuth).Post("/login", s.handleLogin)
			r.With(s.authenticate).Put("/update-password", s.handleUpdatePassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/users", func(r chi.Router) {
				r.Use(s.requireRole(domain.RoleAdmin))
				r.Post("/", s.handleCreateUser)
				r.Get("/", s.handleListUsers)
				r.Get("/stats", s.handleStats)
			})

			r.Route("/stores", func(r chi.Router) {
				r.With(s.requireRole(domain.RoleAdmin)).Post("/", s.handleCreateStore)
				r.Get("/", s.handleListStores)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetStore)
					r.With(s.requireRole(domain.RoleStoreOwner)).Get("/ratings", s.handleListStoreRatings)
				})
			})

			r.Route("/ratings", func(r chi.Router) {
				r.Post("/", s.handleCreateRating)
				r.Put("/{storeId}", s.handleUpdateRating)
			})
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx ends or the listener fails.
// Shutdown may run concurrently with Start.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.store != nil {
		if err := s.store.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unavailable")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
