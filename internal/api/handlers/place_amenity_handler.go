package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/hbnb/internal/domain/entities"
)

// PlaceAmenityService manages the links between places and amenities
type PlaceAmenityService interface {
	PlaceAmenities(ctx context.Context, placeID string) ([]entities.Entity, error)
	LinkAmenity(ctx context.Context, placeID, amenityID string) (entities.Entity, bool, error)
	UnlinkAmenity(ctx context.Context, placeID, amenityID string) error
}

// PlaceAmenityHandler serves /places/{id}/amenities
type PlaceAmenityHandler struct {
	service PlaceAmenityService
}

// NewPlaceAmenityHandler creates a new place amenity handler
func NewPlaceAmenityHandler(service PlaceAmenityService) *PlaceAmenityHandler {
	return &PlaceAmenityHandler{service: service}
}

// List returns the amenities linked to a place
func (h *PlaceAmenityHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.PlaceAmenities(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithEntities(w, r, list)
}

// Link links an amenity: 201 for a new link, 200 when it already existed
func (h *PlaceAmenityHandler) Link(w http.ResponseWriter, r *http.Request) {
	amenity, created, err := h.service.LinkAmenity(r.Context(), r.PathValue("id"), r.PathValue("amenity_id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondWithEntity(w, r, status, amenity)
}

// Unlink removes the link
func (h *PlaceAmenityHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	if err := h.service.UnlinkAmenity(r.Context(), r.PathValue("id"), r.PathValue("amenity_id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{})
}
