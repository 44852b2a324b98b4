package api

import (
	"time"

	"github.com/rubiojr/convos/pkg/storage"
)

type SearchResponse struct {
	Query    string            `json:"query"`
	Messages []storage.Message `json:"messages"`
	Count    int               `json:"count"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type StoreMessagesRequest struct {
	Messages []storage.Message `json:"messages"`
}

type StoreMessagesResponse struct {
	Stored int `json:"stored"`
}

type ListLabelsResponse struct {
	Labels []storage.FlowLabel `json:"labels"`
	Count  int                 `json:"count"`
}

type ListGroupsResponse struct {
	Groups []storage.Group `json:"groups"`
	Count  int             `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
