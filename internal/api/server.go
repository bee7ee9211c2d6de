// Package api defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tbeaumont/podkeep/internal/core"
	"github.com/tbeaumont/podkeep/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app   *core.App
	store store.Storage
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:   app,
		store: app.Store(),
	}
}

// Store returns the store instance.
func (s *Server) Store() store.Storage {
	return s.store
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleGetVersion)
		r.Get("/health", s.handleHealth)

		// Podcast browsing (read-only; feed management lives elsewhere)
		r.Get("/podcasts", s.handleListPodcasts)
		r.Get("/podcasts/{podcastID}/episodes", s.handleListEpisodes)

		// Download queue
		r.Post("/downloads", s.handleEnqueueDownload)
		r.Get("/downloads", s.handleListDownloads)
		r.Delete("/downloads/{episodeID}", s.handleCancelDownload)

		// Maintenance
		r.Post("/cleanup", s.handleCleanup)
		r.Post("/sync", s.handleSync)
		r.Get("/jobs/status", s.handleGetJobsStatus)
		r.Post("/jobs/run", s.handleRunJob)
	})

	// WebSocket route
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	return r
}
