package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensaur-hub/internal/config"
	"sensaur-hub/internal/hub"
	"sensaur-hub/internal/model"
	"sensaur-hub/internal/repository"
	"sensaur-hub/internal/service"
	"sensaur-hub/internal/wire"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeConnection is an always-open link that records written lines
type fakeConnection struct {
	name  string
	mu    sync.Mutex
	lines []string
}

func (f *fakeConnection) Open(ctx context.Context) error { return nil }
func (f *fakeConnection) Close() error                   { return nil }
func (f *fakeConnection) IsOpen() bool                   { return true }

func (f *fakeConnection) ReadLine(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (f *fakeConnection) WriteLine(ctx context.Context, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeConnection) Name() string               { return f.name }
func (f *fakeConnection) Type() model.ConnectionType { return model.ConnectionTypeSerial }

func (f *fakeConnection) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, msg hub.Message) error { return nil }

type stubReadings struct {
	filter *repository.ReadingFilter
}

func (s *stubReadings) SaveDevice(ctx context.Context, device hub.DeviceSnapshot) error { return nil }

func (s *stubReadings) SaveReadings(ctx context.Context, readings []hub.SensorReading, at time.Time) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (s *stubReadings) ListReadings(ctx context.Context, filter *repository.ReadingFilter) ([]*repository.Reading, error) {
	s.filter = filter
	return []*repository.Reading{
		{ID: 1, ComponentID: filter.ComponentID, DeviceID: "d1", RawValue: "412", NumericValue: repository.ParseNumeric("412")},
	}, nil
}

func (s *stubReadings) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

// newIdentifiedService returns a service with device d1 attached on a fake
// connection
func newIdentifiedService(t *testing.T, publisher hub.Publisher) (*service.HubService, *fakeConnection) {
	t.Helper()
	h := hub.New(hub.Options{ID: "h1", OwnerID: "o1", Host: "hub.local", PollingInterval: 5 * time.Second})
	hs := service.NewHubService(h, wire.JSONCodec{}, publisher, nil, time.Second, zap.NewNop())

	conn := &fakeConnection{name: "p1"}
	require.NoError(t, hs.AddConnection(conn))

	h.Attach("p1")
	for _, line := range []string{
		"id:d1",
		"version:2",
		"count:2",
		"comp:0:i,CO2,K-30,PPM",
		"comp:1:o,relay,SRD-05,state",
		"val:412,0",
	} {
		_, err := h.HandleLine("p1", line, time.Now())
		require.NoError(t, err)
	}
	return hs, conn
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, router http.Handler, method, path string, body string) (int, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func newHubRouter(hs *service.HubService, readings repository.ReadingRepository) *gin.Engine {
	router := gin.New()
	NewHubHandler(hs, readings, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestHubHandlerReadEndpoints(t *testing.T) {
	hs, _ := newIdentifiedService(t, nopPublisher{})
	router := newHubRouter(hs, nil)

	code, resp := doRequest(t, router, http.MethodGet, "/api/v1/hub/status", "")
	require.Equal(t, http.StatusOK, code)
	var status hub.Status
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Equal(t, "h1", status.HubID)
	assert.Equal(t, 1, status.Online)
	assert.Equal(t, 5.0, status.PollingInterval)

	code, resp = doRequest(t, router, http.MethodGet, "/api/v1/hub/devices", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"d1":{"version":"2","components":[
		{"id":"d1-CO2","dir":"i","type":"CO2","model":"K-30","units":"PPM"},
		{"id":"d1-relay","dir":"o","type":"relay","model":"SRD-05","units":"state"}]}}`, string(resp.Data))

	code, resp = doRequest(t, router, http.MethodGet, "/api/v1/hub/sensors", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"d1-CO2":"412"}`, string(resp.Data))

	code, resp = doRequest(t, router, http.MethodGet, "/api/v1/devices", "")
	require.Equal(t, http.StatusOK, code)
	var devices []hub.DeviceSnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "p1", devices[0].Port)

	code, _ = doRequest(t, router, http.MethodGet, "/api/v1/devices/d1", "")
	assert.Equal(t, http.StatusOK, code)

	code, resp = doRequest(t, router, http.MethodGet, "/api/v1/devices/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)

	code, _ = doRequest(t, router, http.MethodGet, "/api/v1/hub/connections", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestHubHandlerGetComponent(t *testing.T) {
	hs, _ := newIdentifiedService(t, nopPublisher{})
	router := newHubRouter(hs, nil)

	tests := []struct {
		name string
		path string
		code int
	}{
		{name: "input", path: "/api/v1/devices/d1/components/0", code: http.StatusOK},
		{name: "output", path: "/api/v1/devices/d1/components/1", code: http.StatusOK},
		{name: "inactive slot", path: "/api/v1/devices/d1/components/4", code: http.StatusNotFound},
		{name: "bad index", path: "/api/v1/devices/d1/components/x", code: http.StatusBadRequest},
		{name: "unknown device", path: "/api/v1/devices/d9/components/0", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := doRequest(t, router, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.code, code)
		})
	}

	_, resp := doRequest(t, router, http.MethodGet, "/api/v1/devices/d1/components/0", "")
	var component hub.ComponentSnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &component))
	assert.Equal(t, "d1-CO2", component.ID)
	assert.Equal(t, "i", component.Dir)
	assert.Equal(t, "412", component.Value)
}

func TestHubHandlerApplyConfig(t *testing.T) {
	hs, _ := newIdentifiedService(t, nopPublisher{})
	router := newHubRouter(hs, nil)

	code, _ := doRequest(t, router, http.MethodPost, "/api/v1/hub/config", `{"polling_interval": 2.5}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2500*time.Millisecond, hs.Hub().PollingInterval())

	code, _ = doRequest(t, router, http.MethodPost, "/api/v1/hub/config", `{"polling_interval": 0}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 2500*time.Millisecond, hs.Hub().PollingInterval())

	code, _ = doRequest(t, router, http.MethodPost, "/api/v1/hub/config", `{"polling_interval": "fast"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	for _, body := range []string{`{"polling_interval": 1e-12}`, `{"polling_interval": 1e12}`} {
		code, _ = doRequest(t, router, http.MethodPost, "/api/v1/hub/config", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, 2500*time.Millisecond, hs.Hub().PollingInterval())
	}
}

func TestHubHandlerSetActuators(t *testing.T) {
	hs, conn := newIdentifiedService(t, nopPublisher{})
	router := newHubRouter(hs, nil)

	code, resp := doRequest(t, router, http.MethodPost, "/api/v1/hub/actuators", `{"d1-relay": "1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"set:1:1"}, conn.written())

	code, _ = doRequest(t, router, http.MethodPost, "/api/v1/hub/actuators", `{"d1-CO2": "1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = doRequest(t, router, http.MethodPost, "/api/v1/hub/actuators", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, router, http.MethodPost, "/api/v1/hub/actuators", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Len(t, conn.written(), 1)
}

func TestHubHandlerListReadings(t *testing.T) {
	hs, _ := newIdentifiedService(t, nopPublisher{})

	code, _ := doRequest(t, newHubRouter(hs, nil), http.MethodGet, "/api/v1/components/d1-CO2/readings", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	readings := &stubReadings{}
	router := newHubRouter(hs, readings)

	code, resp := doRequest(t, router, http.MethodGet, "/api/v1/components/d1-CO2/readings?limit=5&since=2024-05-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, readings.filter)
	assert.Equal(t, "d1-CO2", readings.filter.ComponentID)
	assert.Equal(t, 5, readings.filter.Limit)
	require.NotNil(t, readings.filter.Since)

	var data struct {
		Count    int                   `json:"count"`
		Readings []*repository.Reading `json:"readings"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 1, data.Count)
	assert.True(t, data.Readings[0].NumericValue.Valid)

	code, _ = doRequest(t, router, http.MethodGet, "/api/v1/components/d1-CO2/readings?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, router, http.MethodGet, "/api/v1/components/d1-CO2/readings?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealthHandlerWithoutDatabase(t *testing.T) {
	hs, _ := newIdentifiedService(t, nopPublisher{})
	cfg := &config.Config{App: config.AppConfig{Name: "sensaur-hub", Version: "test"}}

	router := gin.New()
	NewHealthHandler(nil, hs, cfg, zap.NewNop()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "disabled", health.Checks["database"].Status)
	assert.Equal(t, "h1", health.Checks["hub"].Data["hub_id"])

	tests := []struct {
		path string
		code int
	}{
		{path: "/health/db", code: http.StatusServiceUnavailable},
		{path: "/ready", code: http.StatusOK},
		{path: "/live", code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
