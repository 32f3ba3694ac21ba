package api

import (
	"io"
	"net/http"

	"github.com/adfharrison1/go-analytics/pkg/analytics"
	"github.com/rs/zerolog/log"
)

// maxRecordBytes caps the body of a typed record.
const maxRecordBytes = 1 << 20

// HandleCreateRecord returns a handler that validates a body against shape
// and stores it in the shape's collection.
func (h *Handler) HandleCreateRecord(shape analytics.Shape) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Str("collection", shape.Collection).Msg("handleCreateRecord called")

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBytes))
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		record, err := analytics.DecodeRecord(shape, body)
		if err != nil {
			log.Warn().Err(err).Str("shape", shape.Name).Msg("Record rejected")
			WriteError(w, err)
			return
		}

		stored, err := h.reports.Create(r.Context(), shape, record)
		if err != nil {
			log.Error().Err(err).Str("collection", shape.Collection).Msg("Insert failed")
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, stored)
	}
}
