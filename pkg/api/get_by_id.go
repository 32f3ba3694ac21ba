package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// HandleGetById handles GET requests to retrieve a document by ID
func (h *Handler) HandleGetById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Info().Str("collection", collName).Str("id", docId).Msg("handleGetById called")

	doc, err := h.storage.GetById(r.Context(), collName, docId)
	if err != nil {
		log.Error().Err(err).Str("collection", collName).Str("id", docId).Msg("GetById failed")
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}
