package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/hbnb/internal/domain/entities"
)

// EntityService is the part of the application layer the REST handlers use
type EntityService interface {
	Get(ctx context.Context, kind entities.Kind, id string) (entities.Entity, error)
	List(ctx context.Context, kind entities.Kind) ([]entities.Entity, error)
	ListChildren(ctx context.Context, parent entities.Kind, parentID string, child entities.Kind) ([]entities.Entity, error)
	Create(ctx context.Context, kind entities.Kind, parentID string, in entities.Input) (entities.Entity, error)
	Update(ctx context.Context, kind entities.Kind, id string, in entities.Input) (entities.Entity, error)
	Delete(ctx context.Context, kind entities.Kind, id string) error
}

// EntityHandler serves the CRUD endpoints of one entity kind. When parent is
// set, collections and creation are scoped under the parent resource.
type EntityHandler struct {
	kind    entities.Kind
	parent  entities.Kind
	service EntityService
}

// NewEntityHandler creates a handler for a top-level collection
func NewEntityHandler(kind entities.Kind, service EntityService) *EntityHandler {
	return &EntityHandler{kind: kind, service: service}
}

// NewNestedEntityHandler creates a handler whose collection lives under parent
func NewNestedEntityHandler(kind, parent entities.Kind, service EntityService) *EntityHandler {
	return &EntityHandler{kind: kind, parent: parent, service: service}
}

// Kind returns the kind served by the handler
func (h *EntityHandler) Kind() entities.Kind {
	return h.kind
}

// List handles GET on a top-level collection
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), h.kind)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithEntities(w, r, list)
}

// ListByParent handles GET on a collection nested under {id}
func (h *EntityHandler) ListByParent(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListChildren(r.Context(), h.parent, r.PathValue("id"), h.kind)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithEntities(w, r, list)
}

// Get handles GET on a single resource
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), h.kind, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithEntity(w, r, http.StatusOK, e)
}

// Create handles POST on the collection. For nested collections the parent
// is looked up before the body is read, so an unknown parent wins over a
// malformed body.
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentID := ""
	if h.parent.Valid() {
		parentID = r.PathValue("id")
		if _, err := h.service.Get(ctx, h.parent, parentID); err != nil {
			respondWithAppError(w, r, err)
			return
		}
	}

	in, err := decodeInput(r, h.kind)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	e, err := h.service.Create(ctx, h.kind, parentID, in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithEntity(w, r, http.StatusCreated, e)
}

// Update handles PUT on a single resource
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := h.service.Get(ctx, h.kind, id); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	in, err := decodeInput(r, h.kind)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	e, err := h.service.Update(ctx, h.kind, id, in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithEntity(w, r, http.StatusOK, e)
}

// Delete handles DELETE on a single resource
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), h.kind, r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{})
}
