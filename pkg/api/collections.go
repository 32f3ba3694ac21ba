package api

import (
	"net/http"
)

// CollectionsResponse lists the known collections.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
	Count       int      `json:"count"`
}

// HandleListCollections handles GET requests listing every collection
func (h *Handler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := h.storage.ListCollections(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, CollectionsResponse{Collections: names, Count: len(names)})
}
