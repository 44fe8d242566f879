// Package api provides the HTTP API server and handlers for the site
// provisioning workflow.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/eumtools/siteprov-server/internal/auth"
	"github.com/eumtools/siteprov-server/internal/config"
	"github.com/eumtools/siteprov-server/internal/ratelimit"
	"github.com/eumtools/siteprov-server/internal/service"
	"github.com/eumtools/siteprov-server/internal/store"
	"github.com/eumtools/siteprov-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.ListStore
	siteService     *service.SiteService
	metadataService *service.MetadataService
	tokens          *auth.TokenService
	validator       *validation.Validator
	writeLimiter    *ratelimit.KeyedRateLimiter
	cfg             *config.Config
	router          *chi.Mux
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	st store.ListStore,
	siteService *service.SiteService,
	metadataService *service.MetadataService,
	tokens *auth.TokenService,
	validator *validation.Validator,
	cfg *config.Config,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:           st,
		siteService:     siteService,
		metadataService: metadataService,
		tokens:          tokens,
		validator:       validator,
		writeLimiter:    ratelimit.New(cfg.Server.WriteRPS, cfg.Server.WriteBurst),
		cfg:             cfg,
		router:          chi.NewRouter(),
		logger:          logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Legacy provisioning surface. Root-level paths and bare response
	// bodies, the contract the web part clients were built against.
	s.router.Route("/Sites", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleListSites)
		r.With(s.limitWrites).Post("/", s.handleCreateSiteRequest)
	})

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/divisions", s.handleListDivisions)
		r.Get("/sitetemplates", s.handleListSiteTemplates)
		r.Get("/contenttypes/{name}/fields", s.handleContentTypeFields)
		r.Get("/blacklist", s.handleBlacklist)
		r.Get("/aliases/check", s.handleCheckAlias)

		// Direct list item endpoints. Direct-mode clients write native
		// shapes here instead of going through /Sites.
		r.Route("/lists/{list}/items", func(r chi.Router) {
			r.Get("/", s.handleGetListItems)
			r.With(s.limitWrites).Post("/", s.handleAddListItem)
		})
	})
}
