// Package api provides the loopback HTTP surface the desktop UI talks to.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/luminareader/lumina-server/internal/media/covers"
	"github.com/luminareader/lumina-server/internal/notify"
	"github.com/luminareader/lumina-server/internal/ratelimit"
	"github.com/luminareader/lumina-server/internal/reader"
	"github.com/luminareader/lumina-server/internal/sse"
	"github.com/luminareader/lumina-server/internal/validation"
)

// Rate limits for the two expensive endpoints. Import parses and hashes a
// whole archive per call; in-book search fans out across every spine
// document.
const (
	importRatePerSec = 1
	importBurst      = 3
	searchRatePerSec = 5
	searchBurst      = 10
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	services      *Services
	session       *reader.Session
	toasts        *notify.Center
	covers        *covers.Storage
	sseHandler    *sse.Handler
	validate      *validation.Validator
	importLimiter *ratelimit.KeyedRateLimiter
	searchLimiter *ratelimit.KeyedRateLimiter
	uiOrigin      string
	router        *chi.Mux
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	services *Services,
	session *reader.Session,
	toasts *notify.Center,
	coverStorage *covers.Storage,
	sseHandler *sse.Handler,
	uiOrigin string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		services:      services,
		session:       session,
		toasts:        toasts,
		covers:        coverStorage,
		sseHandler:    sseHandler,
		validate:      validation.New(),
		importLimiter: ratelimit.New(importRatePerSec, importBurst),
		searchLimiter: ratelimit.New(searchRatePerSec, searchBurst),
		uiOrigin:      uiOrigin,
		router:        chi.NewRouter(),
		logger:        logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the per-key rate limiter janitors.
func (s *Server) Close() {
	s.importLimiter.Stop()
	s.searchLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.uiOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Cover images (static, ETag-cached).
	s.router.Get("/covers/{bookID}", s.handleGetCover)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Library.
		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Post("/clear", s.handleClearLibrary)
			r.Post("/reindex", s.handleReindexLibrary)
			r.Get("/{id}", s.handleGetBook)
			r.Patch("/{id}", s.handleUpdateBook)
			r.Delete("/{id}", s.handleDeleteBook)
			r.Put("/{id}/progress", s.handleUpdateProgress)
		})

		// Import (rate-limited; one archive parse per call).
		r.With(s.rateLimit(s.importLimiter)).Post("/import", s.handleImportBook)

		// Collections.
		r.Route("/collections", func(r chi.Router) {
			r.Post("/", s.handleCreateCollection)
			r.Get("/", s.handleListCollections)
			r.Get("/{id}", s.handleGetCollection)
			r.Patch("/{id}", s.handleUpdateCollection)
			r.Delete("/{id}", s.handleDeleteCollection)
			r.Get("/{id}/books", s.handleGetCollectionBooks)
			r.Post("/{id}/books", s.handleAddBookToCollection)
			r.Delete("/{id}/books/{bookID}", s.handleRemoveBookFromCollection)
		})

		// Preferences.
		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", s.handleGetPreferences)
			r.Patch("/", s.handleUpdatePreferences)
			r.Get("/fonts", s.handleListFonts)
			r.Post("/font-size/increase", s.handleIncreaseFontSize)
			r.Post("/font-size/decrease", s.handleDecreaseFontSize)
		})

		// Reader session.
		r.Route("/reader", func(r chi.Router) {
			r.Post("/open", s.handleOpenBook)
			r.Post("/close", s.handleCloseBook)
			r.Get("/state", s.handleReaderState)
			r.Put("/surface", s.handleSetSurface)
			r.Delete("/surface", s.handleClearSurface)
			r.Post("/next", s.handleNextPage)
			r.Post("/prev", s.handlePrevPage)
			r.Post("/goto", s.handleGoTo)
			r.Get("/toc", s.handleGetTOC)
			r.With(s.rateLimit(s.searchLimiter)).Get("/search", s.handleSearchBook)
			r.Get("/bookmarks", s.handleListBookmarks)
			r.Post("/bookmarks", s.handleAddBookmark)
			r.Delete("/bookmarks/{id}", s.handleRemoveBookmark)
			r.Get("/highlights", s.handleListHighlights)
			r.Post("/highlights", s.handleAddHighlight)
			r.Delete("/highlights/{id}", s.handleRemoveHighlight)
		})

		// Notifications.
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Delete("/{id}", s.handleDismissNotification)
		})

		// Event stream.
		r.Get("/events", s.sseHandler.ServeHTTP)
	})
}
