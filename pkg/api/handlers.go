package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rubiojr/convos/pkg/query"
	"github.com/rubiojr/convos/pkg/search"
	"github.com/rubiojr/convos/pkg/storage"
	"github.com/rubiojr/convos/pkg/version"
)

// HandleSearch serves GET /api/search. Query parameters: q, group, label,
// start_date, end_date, from_expression, to_expression, limit, offset.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	term, args := search.ParseParams(r.URL.Query())
	if !r.URL.Query().Has("limit") {
		args.Limit = int(s.defaultLimit.Load())
	}

	q, err := s.searchService.Search(s.storage.BaseQuery(), term, args)
	if err != nil {
		if errors.Is(err, query.ErrInvalidIdentifier) {
			s.writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
			return
		}
		logger.Errorf("building search query: %v", err)
		s.writeError(w, http.StatusInternalServerError, "search_failed", "Failed to build search query")
		return
	}

	messages, err := s.storage.SearchMessages(q, args.Limit, args.Offset)
	if err != nil {
		logger.Errorf("executing search: %v", err)
		s.writeError(w, http.StatusInternalServerError, "search_failed", "Failed to execute search")
		return
	}
	if messages == nil {
		messages = []storage.Message{}
	}

	s.writeJSON(w, http.StatusOK, SearchResponse{
		Query:    term,
		Messages: messages,
		Count:    len(messages),
		Limit:    args.Limit,
		Offset:   args.Offset,
	})
}

// HandleStoreMessages serves POST /api/messages with a JSON batch.
func (s *Server) HandleStoreMessages(w http.ResponseWriter, r *http.Request) {
	var req StoreMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	if len(req.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "No messages in request")
		return
	}

	if err := s.storage.StoreMessages(req.Messages); err != nil {
		logger.Errorf("storing messages: %v", err)
		s.writeError(w, http.StatusInternalServerError, "store_failed", "Failed to store messages")
		return
	}

	s.writeJSON(w, http.StatusCreated, StoreMessagesResponse{Stored: len(req.Messages)})
}

func (s *Server) HandleListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.storage.ListFlowLabels()
	if err != nil {
		logger.Errorf("listing flow labels: %v", err)
		s.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list labels")
		return
	}
	if labels == nil {
		labels = []storage.FlowLabel{}
	}
	s.writeJSON(w, http.StatusOK, ListLabelsResponse{Labels: labels, Count: len(labels)})
}

func (s *Server) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.storage.ListGroups()
	if err != nil {
		logger.Errorf("listing groups: %v", err)
		s.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list groups")
		return
	}
	if groups == nil {
		groups = []storage.Group{}
	}
	s.writeJSON(w, http.StatusOK, ListGroupsResponse{Groups: groups, Count: len(groups)})
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.GetStats()
	if err != nil {
		logger.Errorf("getting stats: %v", err)
		s.writeError(w, http.StatusInternalServerError, "stats_failed", "Failed to get statistics")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   version.Version,
	})
}
