package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/aggregation"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// AggregateRequest is the body of an ad-hoc aggregation.
type AggregateRequest struct {
	Pipeline []interface{} `json:"pipeline"`
}

// HandleAggregate handles POST requests that run a pipeline over a collection
func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	start := time.Now()

	log.Info().Str("collection", collName).Msg("handleAggregate called")

	var req AggregateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		log.Error().Err(err).Msg("Decoding body failed")
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Pipeline == nil {
		WriteJSONError(w, http.StatusBadRequest, "pipeline is required")
		return
	}

	pipeline, err := aggregation.ParsePipeline(req.Pipeline)
	if err != nil {
		WriteError(w, err)
		return
	}

	results, err := h.evaluator.Run(r.Context(), collName, pipeline)
	if err != nil {
		log.Error().Err(err).Str("collection", collName).Msg("Aggregation failed")
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documents(results))
	log.Info().
		Str("collection", collName).
		Int("stages", len(pipeline)).
		Int("results", len(results)).
		Dur("took", time.Since(start)).
		Msg("Aggregation successful")
}
