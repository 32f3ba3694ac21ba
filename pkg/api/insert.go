package api

import (
	"encoding/json"
	"net/http"

	"github.com/adfharrison1/go-analytics/pkg/aggregation"
	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// HandleInsert handles POST requests to insert a document into a collection.
// Plain strings are stored as strings; dates must be sent as {"$date": "..."}
// so reports can range over them.
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Info().Str("collection", collName).Msg("handleInsert called")

	var doc domain.Document
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		log.Error().Err(err).Msg("Decoding body failed")
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if doc == nil {
		WriteJSONError(w, http.StatusBadRequest, "Request body must be a JSON object")
		return
	}

	doc, err := aggregation.ResolveLiterals(doc)
	if err != nil {
		WriteError(w, err)
		return
	}

	stored, err := h.storage.Insert(r.Context(), collName, doc)
	if err != nil {
		log.Error().Err(err).Str("collection", collName).Msg("Insert failed")
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, stored)
	log.Info().Str("collection", collName).Interface("_id", stored["_id"]).Msg("Insert successful")
}
