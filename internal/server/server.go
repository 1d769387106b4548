// Package server wires storage, services and handlers into the HTTP API and
// runs it with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/package-registry/internal/auth"
	"github.com/sakif/package-registry/internal/config"
	"github.com/sakif/package-registry/internal/handler"
	"github.com/sakif/package-registry/internal/middleware"
	sqliteRepo "github.com/sakif/package-registry/internal/repository/sqlite"
	"github.com/sakif/package-registry/internal/service"
)

// Server owns the database and the router. Start closes the database on exit.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *middleware.Metrics

	// provider is swapped in tests for a fake GitHub.
	provider handler.IdentityProvider
}

// Option customizes a Server before its routes are built.
type Option func(*Server)

// WithIdentityProvider replaces the GitHub OAuth provider.
func WithIdentityProvider(p handler.IdentityProvider) Option {
	return func(s *Server) { s.provider = p }
}

// New opens the database, applies migrations and builds the router.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.Open(context.Background(), cfg.Database.Path, sqliteRepo.Options{
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: middleware.NewMetrics(),
		provider: auth.NewGitHubProvider(
			cfg.GitHub.ClientID,
			cfg.GitHub.ClientSecret,
			cfg.GitHub.CallbackURL,
		),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// DB exposes the store, mainly for seeding in tests.
func (s *Server) DB() *sqliteRepo.DB {
	return s.db
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes builds the middleware chain and the /api/v1 tree.
//
// Identity is resolved once for every API request; RequireAuth guards the
// routes that need a caller.
func (s *Server) setupRoutes() error {
	var sessions *auth.SessionService
	if s.config.SessionsEnabled() {
		var err error
		sessions, err = auth.NewSessionService(s.config.Auth.JWTSecret, s.config.Auth.SessionTTL)
		if err != nil {
			return fmt.Errorf("creating session service: %w", err)
		}
	} else {
		s.logger.Warn("auth.jwt_secret not set, GitHub login is disabled")
	}

	identity := service.NewIdentityStore(s.db, s.logger)
	profile := service.NewProfileEditor(s.db, s.logger)
	downloads := service.NewDownloadAggregator(s.db, s.db)
	follows := service.NewFollowGraph(s.db, s.db, s.logger)
	feed := service.NewFeedQuery(s.db, s.db, service.FeedOptions{
		DefaultPerPage: s.config.Feed.DefaultPerPage,
		MaxPerPage:     s.config.Feed.MaxPerPage,
	}, s.logger)
	tokens := service.NewTokenAuthenticator(s.db, s.logger)

	var logins *service.LoginService
	if sessions != nil {
		logins = service.NewLoginService(identity, sessions, s.logger)
	}

	authHandler := handler.NewAuthHandler(s.provider, logins, identity,
		s.config.Auth.SessionTTL, s.config.Auth.SecureCookies, s.logger)
	userHandler := handler.NewUserHandler(identity, profile, downloads, s.logger)
	followHandler := handler.NewFollowHandler(follows, feed, s.logger)
	tokenHandler := handler.NewTokenHandler(tokens, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(s.metrics.Middleware)
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Resolve(sessions, tokens, s.logger))

		if sessions != nil {
			r.Get("/authorize_url", authHandler.HandleAuthorizeURL)
			r.Get("/authorize", authHandler.HandleAuthorize)
		}
		r.Post("/logout", authHandler.HandleLogout)

		r.Get("/users/{user}", userHandler.HandleShow)
		r.Get("/users/{user}/stats", userHandler.HandleStats)
		r.Get("/packages", userHandler.HandleListPackages)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Get("/me", authHandler.HandleMe)
			r.Get("/me/updates", followHandler.HandleUpdates)
			r.Post("/me/tokens", tokenHandler.HandleCreate)
			r.Put("/users/{user}", userHandler.HandleUpdate)

			r.Put("/packages/{name}/follow", followHandler.HandleFollow)
			r.Delete("/packages/{name}/follow", followHandler.HandleUnfollow)
			r.Get("/packages/{name}/following", followHandler.HandleFollowing)
		})
	})

	return nil
}

// Start listens on the configured port until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Server.Port))
	if err != nil {
		s.db.Close()
		return fmt.Errorf("listening on port %d: %w", s.config.Server.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is done, then drains in-flight
// requests for at most server.shutdown_timeout and closes the database.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.db.Close()

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
