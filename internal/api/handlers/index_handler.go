package handlers

import (
	"context"
	"net/http"
)

// StatsProvider counts stored entities per collection
type StatsProvider interface {
	Stats(ctx context.Context) (map[string]int, error)
}

// IndexHandler serves the status and stats endpoints
type IndexHandler struct {
	stats StatsProvider
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(stats StatsProvider) *IndexHandler {
	return &IndexHandler{stats: stats}
}

// Status reports that the API is up
func (h *IndexHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Stats returns the number of objects per collection
func (h *IndexHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// NotFound is the JSON fallback for unknown routes
func (h *IndexHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusNotFound, "Not found")
}
