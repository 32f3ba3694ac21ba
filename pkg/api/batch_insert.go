package api

import (
	"encoding/json"
	"net/http"

	"github.com/adfharrison1/go-analytics/pkg/aggregation"
	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// maxBatchSize caps the documents accepted by one batch insert.
const maxBatchSize = 1000

// BatchInsertRequest represents the request body for batch insert operations
type BatchInsertRequest struct {
	Documents []domain.Document `json:"documents"`
}

// BatchInsertResponse represents the response for batch insert operations
type BatchInsertResponse struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	InsertedCount int               `json:"inserted_count"`
	Collection    string            `json:"collection"`
	Documents     []domain.Document `json:"documents"`
}

// HandleBatchInsert handles POST requests to insert multiple documents into collections
func (h *Handler) HandleBatchInsert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Info().Str("collection", collName).Msg("handleBatchInsert called")

	var req BatchInsertRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		log.Error().Err(err).Msg("Decoding body failed")
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Documents) == 0 {
		log.Error().Msg("No documents provided for batch insert")
		WriteJSONError(w, http.StatusBadRequest, "No documents provided")
		return
	}

	if len(req.Documents) > maxBatchSize {
		log.Error().Int("count", len(req.Documents)).Msg("Too many documents for batch insert")
		WriteJSONError(w, http.StatusBadRequest, "Maximum 1000 documents allowed per batch")
		return
	}

	for i, doc := range req.Documents {
		resolved, err := aggregation.ResolveLiterals(doc)
		if err != nil {
			WriteError(w, err)
			return
		}
		req.Documents[i] = resolved
	}

	stored, err := h.storage.BatchInsert(r.Context(), collName, req.Documents)
	if err != nil {
		log.Error().Err(err).Str("collection", collName).Msg("Batch insert failed")
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BatchInsertResponse{
		Success:       true,
		Message:       "Batch insert completed successfully",
		InsertedCount: len(stored),
		Collection:    collName,
		Documents:     stored,
	})

	log.Info().Str("collection", collName).Int("count", len(stored)).Msg("Batch insert successful")
}
