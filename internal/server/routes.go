package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Scrape trigger
	mux.HandleFunc("/api/menu", s.app.MenuHandler.TriggerHandler)

	// Stored menus
	mux.HandleFunc("/api/menus", s.app.RecordsHandler.ListHandler)
	mux.HandleFunc("/api/menus/image", s.app.RecordsHandler.ImageHandler)

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Everything else is a JSON 404
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
