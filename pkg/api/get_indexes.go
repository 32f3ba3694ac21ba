package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// HandleGetIndexes handles GET requests to retrieve all indexes for a collection
func (h *Handler) HandleGetIndexes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Info().Str("collection", collName).Msg("handleGetIndexes called")

	if h.indexer == nil {
		WriteJSONError(w, http.StatusNotImplemented, "indexes are not supported by this storage backend")
		return
	}

	indexes, err := h.indexer.GetIndexes(collName)
	if err != nil {
		log.Error().Err(err).Str("collection", collName).Msg("Failed to get indexes")
		WriteError(w, err)
		return
	}
	if indexes == nil {
		indexes = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"collection":  collName,
		"indexes":     indexes,
		"index_count": len(indexes),
	})
}
