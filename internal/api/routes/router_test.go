package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hbnb/internal/adapters/filestore"
	"github.com/zatekoja/hbnb/internal/api/routes"
	"github.com/zatekoja/hbnb/internal/application/services"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"golang.org/x/crypto/bcrypt"
)

type nopEventBus struct{}

func (nopEventBus) Publish(ctx context.Context, channel string, event *entities.EntityEvent) error {
	return nil
}

func (nopEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.EntityEvent, error) {
	return nil, errors.New("not connected")
}

func (nopEventBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (nopEventBus) Close() error { return nil }

func newServer(t *testing.T, opts ...func(*routes.Router)) *httptest.Server {
	t.Helper()
	store := filestore.NewFileStorage(filepath.Join(t.TempDir(), "file.json"), nil)
	require.NoError(t, store.Reload(context.Background()))
	t.Cleanup(func() { store.Close() })

	svc := services.NewEntityService(store)
	svc.SetPasswordCost(bcrypt.MinCost)

	router := routes.NewRouter(svc, svc, svc, []string{"*"}, nil)
	for _, opt := range opts {
		opt(router)
	}
	server := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, server *httptest.Server, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp.StatusCode, string(raw)
}

func createID(t *testing.T, server *httptest.Server, path, body string) string {
	t.Helper()
	status, raw := call(t, server, "POST", path, body)
	require.Equal(t, http.StatusCreated, status, raw)

	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	id, _ := obj["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestRouter_StatusWithTrailingSlash(t *testing.T) {
	server := newServer(t)

	for _, path := range []string{"/api/v1/status", "/api/v1/status/"} {
		status, body := call(t, server, "GET", path, "")
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"status":"OK"}`, body)
	}
}

func TestRouter_UnknownRouteIsJSON404(t *testing.T) {
	server := newServer(t)

	status, body := call(t, server, "GET", "/api/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not found"}`, body)
}

func TestRouter_StateCityLifecycle(t *testing.T) {
	server := newServer(t)

	stateID := createID(t, server, "/api/v1/states/", `{"name":"California"}`)
	cityID := createID(t, server, "/api/v1/states/"+stateID+"/cities", `{"name":"San Francisco"}`)

	status, body := call(t, server, "GET", "/api/v1/states/"+stateID+"/cities", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, cityID)

	status, body = call(t, server, "PUT", "/api/v1/cities/"+cityID, `{"name":"Oakland","state_id":"elsewhere"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"name":"Oakland"`)
	assert.Contains(t, body, stateID)

	status, body = call(t, server, "DELETE", "/api/v1/states/"+stateID, "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{}`, body)

	status, _ = call(t, server, "GET", "/api/v1/cities/"+cityID, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_UpdateIgnoresIdentityAndFixedFields(t *testing.T) {
	server := newServer(t)

	stateID := createID(t, server, "/api/v1/states", `{"name":"California"}`)
	otherStateID := createID(t, server, "/api/v1/states", `{"name":"Oregon"}`)
	cityID := createID(t, server, "/api/v1/states/"+stateID+"/cities", `{"name":"San Francisco"}`)
	userID := createID(t, server, "/api/v1/users", `{"email":"host@hbnb.io","password":"secret"}`)

	_, raw := call(t, server, "GET", "/api/v1/cities/"+cityID, "")
	before := object(t, raw)

	status, raw := call(t, server, "PUT", "/api/v1/cities/"+cityID, `{
		"id": "forced",
		"created_at": "2000-01-01T00:00:00Z",
		"updated_at": "2000-01-01T00:00:00Z",
		"state_id": "`+otherStateID+`",
		"name": "Oakland"
	}`)
	require.Equal(t, http.StatusOK, status, raw)
	updated := object(t, raw)
	assert.Equal(t, "Oakland", updated["name"])

	_, raw = call(t, server, "GET", "/api/v1/cities/"+cityID, "")
	after := object(t, raw)
	assert.Equal(t, "Oakland", after["name"])
	assert.Equal(t, cityID, after["id"])
	assert.Equal(t, before["created_at"], after["created_at"])
	assert.Equal(t, stateID, after["state_id"])
	assert.NotEqual(t, "2000-01-01T00:00:00Z", after["updated_at"])

	status, raw = call(t, server, "GET", "/api/v1/cities/forced", "")
	assert.Equal(t, http.StatusNotFound, status, raw)

	status, raw = call(t, server, "PUT", "/api/v1/users/"+userID, `{"email":"other@hbnb.io","first_name":"Betty"}`)
	require.Equal(t, http.StatusOK, status, raw)
	user := object(t, raw)
	assert.Equal(t, "host@hbnb.io", user["email"])
	assert.Equal(t, "Betty", user["first_name"])
}

func object(t *testing.T, raw string) map[string]any {
	t.Helper()
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	return obj
}

func TestRouter_CreateErrors(t *testing.T) {
	server := newServer(t)
	createID(t, server, "/api/v1/states", `{"name":"Nevada"}`)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{"not json", "/api/v1/states", `Nevada`, http.StatusBadRequest, `{"error":"Not a JSON"}`},
		{"empty object", "/api/v1/states", `{}`, http.StatusBadRequest, `{"error":"Not a JSON"}`},
		{"missing name", "/api/v1/states", `{"description":"x"}`, http.StatusBadRequest, `{"error":"Missing name"}`},
		{"missing password", "/api/v1/users", `{"email":"a@b.c"}`, http.StatusBadRequest, `{"error":"Missing password"}`},
		{"name too long", "/api/v1/states", `{"name":"` + strings.Repeat("x", 200) + `"}`, http.StatusBadRequest, `{"error":"Invalid name"}`},
		{"unknown parent", "/api/v1/states/nope/cities", `{"name":"Reno"}`, http.StatusNotFound, `{"error":"Not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, server, "POST", tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.JSONEq(t, tt.want, body)
		})
	}

	status, _ := call(t, server, "POST", "/api/v1/states", `{"name":"nevada"}`)
	assert.Equal(t, http.StatusConflict, status)
}

func TestRouter_PlaceReviewAmenityFlow(t *testing.T) {
	server := newServer(t)

	stateID := createID(t, server, "/api/v1/states", `{"name":"California"}`)
	cityID := createID(t, server, "/api/v1/states/"+stateID+"/cities", `{"name":"San Francisco"}`)
	userID := createID(t, server, "/api/v1/users", `{"email":"host@hbnb.io","password":"secret"}`)
	placeID := createID(t, server, "/api/v1/cities/"+cityID+"/places", `{"user_id":"`+userID+`","name":"Loft","number_rooms":2}`)
	createID(t, server, "/api/v1/places/"+placeID+"/reviews", `{"user_id":"`+userID+`","text":"Great"}`)
	amenityID := createID(t, server, "/api/v1/amenities", `{"name":"Wifi"}`)

	status, _ := call(t, server, "POST", "/api/v1/places/"+placeID+"/amenities/"+amenityID, "")
	assert.Equal(t, http.StatusCreated, status)
	status, _ = call(t, server, "POST", "/api/v1/places/"+placeID+"/amenities/"+amenityID, "")
	assert.Equal(t, http.StatusOK, status)

	status, body := call(t, server, "GET", "/api/v1/places/"+placeID+"/amenities", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, amenityID)

	status, body = call(t, server, "GET", "/api/v1/users/"+userID, "")
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "password")

	status, body = call(t, server, "GET", "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"amenities":1,"cities":1,"places":1,"reviews":1,"states":1,"users":1}`, body)

	status, _ = call(t, server, "DELETE", "/api/v1/users/"+userID, "")
	assert.Equal(t, http.StatusOK, status)

	status, body = call(t, server, "GET", "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"amenities":1,"cities":1,"places":0,"reviews":0,"states":1,"users":0}`, body)
}

func TestRouter_CORSPreflight(t *testing.T) {
	server := newServer(t)

	req, err := http.NewRequest("OPTIONS", server.URL+"/api/v1/states", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_EventStreamRoutes(t *testing.T) {
	status, _ := call(t, newServer(t), "GET", "/api/v1/events", "")
	assert.Equal(t, http.StatusNotFound, status)

	server := newServer(t, func(r *routes.Router) { r.EnableEventStream(nopEventBus{}) })

	status, body := call(t, server, "GET", "/api/v1/events/countries", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not found"}`, body)

	status, body = call(t, server, "GET", "/api/v1/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.JSONEq(t, `{"error":"event stream unavailable"}`, body)
}
