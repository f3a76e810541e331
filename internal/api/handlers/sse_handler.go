package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/providers"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
)

const defaultHeartbeat = 30 * time.Second

// SSEHandler streams committed entity changes as Server-Sent Events
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	logger    zerolog.Logger
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: defaultHeartbeat,
		logger:    observability.Component("sse"),
	}
}

// SetHeartbeat changes the keep-alive interval
func (h *SSEHandler) SetHeartbeat(d time.Duration) {
	h.heartbeat = d
}

// StreamEvents handles GET /events and GET /events/{kind}, where kind is a
// collection name such as "places"
func (h *SSEHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	channel := providers.EventChannelEntities
	if plural := r.PathValue("kind"); plural != "" {
		kind, err := entities.ParsePlural(plural)
		if err != nil {
			respondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		channel = providers.GetKindChannel(kind)
	}

	ctx := r.Context()
	eventChan, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", channel).Msg("failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendEvent(w, "connected", map[string]any{
		"channel":   channel,
		"timestamp": time.Now().UTC(),
	})
	if err := rc.Flush(); err != nil {
		h.logger.Warn().Err(err).Msg("streaming not supported by response writer")
		return
	}

	h.logger.Debug().Str("channel", channel).Msg("client connected")
	defer h.logger.Debug().Str("channel", channel).Msg("client disconnected")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]any{"timestamp": time.Now().UTC()})
			rc.Flush()
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			h.sendEvent(w, string(event.EventType), event)
			rc.Flush()
		}
	}
}

// sendEvent writes one SSE frame
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
