package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/klauspost/compress/gzhttp"

	"github.com/rubiojr/convos/pkg/expr"
	"github.com/rubiojr/convos/pkg/log"
	"github.com/rubiojr/convos/pkg/realtime"
	"github.com/rubiojr/convos/pkg/search"
	"github.com/rubiojr/convos/pkg/storage"
)

var logger = log.ForComponent("api")

type Server struct {
	storage       *storage.Storage
	searchService *search.Service
	hub           *realtime.Hub
	defaultLimit  atomic.Int64
}

// NewServer creates an API server over the given storage. The hub may be nil
// when no firehose is wanted (the endpoint then reports unavailable).
func NewServer(st *storage.Storage, hub *realtime.Hub, defaultLimit int) *Server {
	s := &Server{
		storage:       st,
		searchService: search.NewService(st, expr.New()),
		hub:           hub,
	}
	s.SetDefaultLimit(defaultLimit)
	return s
}

// SetDefaultLimit changes the per-page result default. Safe to call while
// serving; config reloads use it.
func (s *Server) SetDefaultLimit(limit int) {
	if limit <= 0 {
		limit = 30
	}
	s.defaultLimit.Store(int64(limit))
}

// SetSearchService overrides the default search service. Used to inject a
// date-expression evaluator or test doubles.
func (s *Server) SetSearchService(svc *search.Service) {
	s.searchService = svc
}

// Handler returns the full API handler: routes, CORS and gzip-compressed
// responses.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return gzhttp.GzipHandler(CorsMiddleware(mux))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
