package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/adfharrison1/go-analytics/pkg/aggregation"
	"github.com/adfharrison1/go-analytics/pkg/analytics"
	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/rs/zerolog/log"
)

// Store is the document store the handlers serve.
type Store interface {
	domain.DocumentStore
	FindStream(ctx context.Context, collName string, filter map[string]interface{}) (<-chan domain.Document, error)
}

// Handler provides HTTP handlers for the analytics API
type Handler struct {
	storage   Store
	indexer   domain.IndexManager
	evaluator *aggregation.Evaluator
	reports   *analytics.Service
}

// NewHandler creates a new API handler with dependency injection. indexer
// may be nil when the backend has no field indexes.
func NewHandler(storage Store, indexer domain.IndexManager) *Handler {
	return &Handler{
		storage:   storage,
		indexer:   indexer,
		evaluator: aggregation.NewEvaluator(storage),
		reports:   analytics.NewService(storage),
	}
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Encoding response failed")
	}
}

// documents never encodes as null.
func documents(docs []domain.Document) []domain.Document {
	if docs == nil {
		return []domain.Document{}
	}
	return docs
}
