package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hbnb/internal/api/handlers"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/providers"
)

// MockEventBus hands out one buffered channel per subscription
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.EntityEvent
	subscribed  chan string
	err         error
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.EntityEvent),
		subscribed:  make(chan string, 10),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.EntityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[channel] {
		ch <- event
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.EntityEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	ch := make(chan *entities.EntityEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	m.mu.Unlock()
	m.subscribed <- channel
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, channels := range m.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	m.subscribers = make(map[string][]chan *entities.EntityEvent)
	return nil
}

func (m *MockEventBus) waitSubscribed(t *testing.T) string {
	t.Helper()
	select {
	case channel := <-m.subscribed:
		return channel
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not subscribe")
		return ""
	}
}

func stream(handler *handlers.SSEHandler, req *http.Request) (*httptest.ResponseRecorder, chan struct{}) {
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		handler.StreamEvents(w, req)
		close(done)
	}()
	return w, done
}

func waitDone(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit")
	}
}

func TestSSEHandler_ForwardsEntityEvents(t *testing.T) {
	bus := NewMockEventBus()
	handler := handlers.NewSSEHandler(bus)

	req := httptest.NewRequest("GET", "/api/v1/events", nil)
	w, done := stream(handler, req)

	assert.Equal(t, providers.EventChannelEntities, bus.waitSubscribed(t))

	state := entities.NewState("California")
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelEntities,
		entities.NewEntityEvent(state, entities.EntityEventCreated)))
	require.NoError(t, bus.Close())
	waitDone(t, done)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	body := w.Body.String()
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, "event: created\n")
	assert.Contains(t, body, state.ID)
}

func TestSSEHandler_KindChannel(t *testing.T) {
	bus := NewMockEventBus()
	handler := handlers.NewSSEHandler(bus)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/v1/events/places", nil).WithContext(ctx)
	req.SetPathValue("kind", "places")
	_, done := stream(handler, req)

	assert.Equal(t, "hbnb:kind:places", bus.waitSubscribed(t))
	cancel()
	waitDone(t, done)
}

func TestSSEHandler_Heartbeat(t *testing.T) {
	bus := NewMockEventBus()
	handler := handlers.NewSSEHandler(bus)
	handler.SetHeartbeat(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/api/v1/events", nil).WithContext(ctx)
	w, done := stream(handler, req)

	bus.waitSubscribed(t)
	waitDone(t, done)
	assert.Contains(t, w.Body.String(), "event: heartbeat\n")
}

func TestSSEHandler_UnknownKind(t *testing.T) {
	handler := handlers.NewSSEHandler(NewMockEventBus())

	req := httptest.NewRequest("GET", "/api/v1/events/countries", nil)
	req.SetPathValue("kind", "countries")
	w := httptest.NewRecorder()
	handler.StreamEvents(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSSEHandler_SubscribeFailure(t *testing.T) {
	bus := NewMockEventBus()
	bus.err = errors.New("redis down")
	handler := handlers.NewSSEHandler(bus)

	w := httptest.NewRecorder()
	handler.StreamEvents(w, httptest.NewRequest("GET", "/api/v1/events", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
