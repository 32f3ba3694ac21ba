package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// HandleStream handles GET requests that stream the matching documents of a
// collection as a JSON array.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Info().Str("collection", collName).Msg("handleStream called")

	docChan, err := h.storage.FindStream(r.Context(), collName, parseFilter(r.URL.Query()))
	if err != nil {
		log.Error().Err(err).Str("collection", collName).Msg("Stream failed")
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	w.Write([]byte("[\n"))

	docCount := 0
	for doc := range docChan {
		docJSON, err := json.Marshal(doc)
		if err != nil {
			log.Error().Err(err).Interface("_id", doc["_id"]).Msg("Failed to marshal document")
			continue
		}
		if docCount > 0 {
			w.Write([]byte(",\n"))
		}
		if _, err := w.Write(docJSON); err != nil {
			log.Error().Err(err).Msg("Failed to write to response")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		docCount++
	}

	w.Write([]byte("\n]"))

	log.Info().Str("collection", collName).Int("count", docCount).Msg("Stream complete")
}
