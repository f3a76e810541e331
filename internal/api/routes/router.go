package routes

import (
	"net/http"
	"strings"

	"github.com/zatekoja/hbnb/internal/api/handlers"
	"github.com/zatekoja/hbnb/internal/api/middleware"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/providers"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
)

// APIPrefix is the mount point of every REST route
const APIPrefix = "/api/v1"

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	indexHandler        *handlers.IndexHandler
	placeAmenityHandler *handlers.PlaceAmenityHandler
	sseHandler          *handlers.SSEHandler

	stateHandler   *handlers.EntityHandler
	cityHandler    *handlers.EntityHandler
	amenityHandler *handlers.EntityHandler
	userHandler    *handlers.EntityHandler
	placeHandler   *handlers.EntityHandler
	reviewHandler  *handlers.EntityHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router over the entity service
func NewRouter(
	entityService handlers.EntityService,
	placeAmenityService handlers.PlaceAmenityService,
	stats handlers.StatsProvider,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		indexHandler:        handlers.NewIndexHandler(stats),
		placeAmenityHandler: handlers.NewPlaceAmenityHandler(placeAmenityService),

		stateHandler:   handlers.NewEntityHandler(entities.KindState, entityService),
		cityHandler:    handlers.NewNestedEntityHandler(entities.KindCity, entities.KindState, entityService),
		amenityHandler: handlers.NewEntityHandler(entities.KindAmenity, entityService),
		userHandler:    handlers.NewEntityHandler(entities.KindUser, entityService),
		placeHandler:   handlers.NewNestedEntityHandler(entities.KindPlace, entities.KindCity, entityService),
		reviewHandler:  handlers.NewNestedEntityHandler(entities.KindReview, entities.KindPlace, entityService),

		allowedOrigins: allowedOrigins,
		metrics:        metrics,
	}
}

// EnableEventStream exposes committed changes at /events when an event bus
// is configured
func (r *Router) EnableEventStream(eventBus providers.EventBus) {
	r.sseHandler = handlers.NewSSEHandler(eventBus)
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	r.mux.HandleFunc(method+" "+APIPrefix+path, h)
}

// resource registers the item routes shared by every kind
func (r *Router) resource(h *handlers.EntityHandler) {
	item := "/" + h.Kind().Plural() + "/{id}"
	r.handle("GET "+item, h.Get)
	r.handle("PUT "+item, h.Update)
	r.handle("DELETE "+item, h.Delete)
}

// collection registers a top-level collection
func (r *Router) collection(h *handlers.EntityHandler) {
	r.handle("GET /"+h.Kind().Plural(), h.List)
	r.handle("POST /"+h.Kind().Plural(), h.Create)
	r.resource(h)
}

// nested registers a collection scoped under its parent
func (r *Router) nested(h *handlers.EntityHandler, parent entities.Kind) {
	path := "/" + parent.Plural() + "/{id}/" + h.Kind().Plural()
	r.handle("GET "+path, h.ListByParent)
	r.handle("POST "+path, h.Create)
	r.resource(h)
}

// SetupRoutes sets up all routes and wraps them in middleware
func (r *Router) SetupRoutes() http.Handler {
	r.handle("GET /status", r.indexHandler.Status)
	r.handle("GET /stats", r.indexHandler.Stats)

	r.collection(r.stateHandler)
	r.nested(r.cityHandler, entities.KindState)
	r.collection(r.amenityHandler)
	r.collection(r.userHandler)
	r.nested(r.placeHandler, entities.KindCity)
	r.nested(r.reviewHandler, entities.KindPlace)

	r.handle("GET /places/{id}/amenities", r.placeAmenityHandler.List)
	r.handle("POST /places/{id}/amenities/{amenity_id}", r.placeAmenityHandler.Link)
	r.handle("DELETE /places/{id}/amenities/{amenity_id}", r.placeAmenityHandler.Unlink)

	if r.sseHandler != nil {
		r.handle("GET /events", r.sseHandler.StreamEvents)
		r.handle("GET /events/{kind}", r.sseHandler.StreamEvents)
	}

	r.mux.HandleFunc("/", r.indexHandler.NotFound)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.StripTrailingSlash(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
