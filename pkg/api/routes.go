package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// API routes with method-specific routing
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("POST /api/messages", s.HandleStoreMessages)
	mux.HandleFunc("GET /api/labels", s.HandleListLabels)
	mux.HandleFunc("GET /api/groups", s.HandleListGroups)
	mux.HandleFunc("GET /api/stats", s.HandleStats)
	mux.HandleFunc("GET /api/firehose", s.HandleFirehose)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
