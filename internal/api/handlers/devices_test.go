package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tuyabridge/internal/devices"
	"tuyabridge/internal/tuya"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeService struct {
	summaries []devices.Summary
	state     *devices.DeviceState
	err       error
	sent      map[string]devices.Intent
}

func (f *fakeService) ListDevices(ctx context.Context) ([]devices.Summary, error) {
	return f.summaries, f.err
}

func (f *fakeService) GetState(ctx context.Context, deviceID string) (*devices.DeviceState, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.state, nil
}

func (f *fakeService) SendCommand(ctx context.Context, deviceID string, intent devices.Intent) error {
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = make(map[string]devices.Intent)
	}
	f.sent[deviceID] = intent
	return nil
}

type fakeCache struct {
	states map[string]devices.DeviceState
}

func (f *fakeCache) Latest(deviceID string) (devices.DeviceState, bool) {
	state, ok := f.states[deviceID]
	return state, ok
}

func devicesRouter(service devices.StateService, cache StateCache) *gin.Engine {
	router := gin.New()
	handler := NewDevicesHandler(service, cache, testLogger())
	router.GET("/devices", handler.ListDevices)
	router.GET("/devices/:id/state", handler.GetState)
	router.POST("/devices/:id/command", handler.SendCommand)
	return router
}

func TestDevicesHandler_ListDevices(t *testing.T) {
	service := &fakeService{
		summaries: []devices.Summary{
			{ID: "dev1", Name: "Lamp", Category: "dj", Type: devices.TypeLight, Online: true},
		},
	}
	router := devicesRouter(service, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/devices", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var summaries []devices.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "dev1", summaries[0].ID)
}

func TestDevicesHandler_GetState(t *testing.T) {
	service := &fakeService{
		state: &devices.DeviceState{On: true, Brightness: 55, Online: true},
	}
	router := devicesRouter(service, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/devices/dev1/state", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var state devices.DeviceState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.True(t, state.On)
	assert.Equal(t, 55, state.Brightness)
}

func TestDevicesHandler_GetState_Cached(t *testing.T) {
	// ?cached=true is served from the poller's cache without touching the
	// service at all
	service := &fakeService{err: fmt.Errorf("should not be called")}
	cache := &fakeCache{states: map[string]devices.DeviceState{
		"dev1": {On: true, Brightness: 70},
	}}
	router := devicesRouter(service, cache)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/devices/dev1/state?cached=true", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var state devices.DeviceState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, 70, state.Brightness)
}

func TestDevicesHandler_GetState_CacheMissFallsThrough(t *testing.T) {
	service := &fakeService{state: &devices.DeviceState{On: true}}
	cache := &fakeCache{}
	router := devicesRouter(service, cache)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/devices/dev1/state?cached=true", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDevicesHandler_SendCommand(t *testing.T) {
	service := &fakeService{}
	router := devicesRouter(service, nil)

	body := strings.NewReader(`{"brightness": 80}`)
	req := httptest.NewRequest("POST", "/devices/dev1/command", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	intent := service.sent["dev1"]
	require.NotNil(t, intent.Brightness)
	assert.Equal(t, 80, *intent.Brightness)
}

func TestDevicesHandler_SendCommand_BadBody(t *testing.T) {
	router := devicesRouter(&fakeService{}, nil)

	req := httptest.NewRequest("POST", "/devices/dev1/command", strings.NewReader("{bad"))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDevicesHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("wrap: %w", tuya.ErrAuthentication), http.StatusUnauthorized, "AUTHENTICATION_REQUIRED"},
		{fmt.Errorf("wrap: %w", tuya.ErrRateLimited), http.StatusTooManyRequests, "RATE_LIMITED"},
		{fmt.Errorf("wrap: %w", tuya.ErrDeviceOffline), http.StatusServiceUnavailable, "DEVICE_OFFLINE"},
		{fmt.Errorf("wrap: %w", tuya.ErrUnsupportedOperation), http.StatusUnprocessableEntity, "UNSUPPORTED_OPERATION"},
		{fmt.Errorf("wrap: %w", tuya.ErrDecryption), http.StatusBadGateway, "PROTOCOL_ERROR"},
		{fmt.Errorf("provider error code 9999"), http.StatusBadGateway, "PROVIDER_ERROR"},
	}

	for _, tt := range tests {
		router := devicesRouter(&fakeService{err: tt.err}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/devices/dev1/state", nil))

		assert.Equal(t, tt.wantStatus, w.Code, "error %v", tt.err)

		var response map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, tt.wantCode, response["code"])
	}
}
