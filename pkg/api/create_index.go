package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// HandleCreateIndex creates an index on a specific field in a collection
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	fieldName := vars["field"]

	if h.indexer == nil {
		WriteJSONError(w, http.StatusNotImplemented, "indexes are not supported by this storage backend")
		return
	}

	if fieldName == "" {
		WriteJSONError(w, http.StatusBadRequest, "field name is required")
		return
	}

	// _id lookups go through the collection's position map
	if fieldName == "_id" {
		WriteJSONError(w, http.StatusBadRequest, "cannot create index on _id field (automatically indexed)")
		return
	}

	if err := h.indexer.CreateIndex(collName, fieldName); err != nil {
		log.Error().Err(err).Str("collection", collName).Str("field", fieldName).Msg("CreateIndex failed")
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"message":    "Index created successfully",
		"collection": collName,
		"field":      fieldName,
	})
	log.Info().Str("collection", collName).Str("field", fieldName).Msg("Index created")
}

// HandleDropIndex removes a field index.
func (h *Handler) HandleDropIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	fieldName := vars["field"]

	if h.indexer == nil {
		WriteJSONError(w, http.StatusNotImplemented, "indexes are not supported by this storage backend")
		return
	}

	if err := h.indexer.DropIndex(collName, fieldName); err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Index dropped successfully",
		"collection": collName,
		"field":      fieldName,
	})
}
