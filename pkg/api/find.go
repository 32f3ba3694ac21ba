package api

import (
	"net/http"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// FindResponse is a page of matching documents.
type FindResponse struct {
	Documents []domain.Document `json:"documents"`
	Total     int64             `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
	HasNext   bool              `json:"has_next"`
	HasPrev   bool              `json:"has_prev"`
}

// HandleFind handles GET requests that filter a collection by query
// parameters, paginated with limit and offset.
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Info().Str("collection", collName).Msg("handleFind called")

	query := r.URL.Query()
	options, err := parsePagination(query)
	if err != nil {
		WriteError(w, err)
		return
	}
	filter := parseFilter(query)

	result, err := h.storage.Find(r.Context(), collName, filter, options)
	if err != nil {
		log.Error().Err(err).Str("collection", collName).Msg("Find failed")
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FindResponse{
		Documents: documents(result.Documents),
		Total:     result.Total,
		Limit:     options.Limit,
		Offset:    options.Offset,
		HasNext:   result.HasNext,
		HasPrev:   result.HasPrev,
	})
}
