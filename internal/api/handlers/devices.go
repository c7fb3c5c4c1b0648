package handlers

import (
	"log/slog"
	"net/http"

	"tuyabridge/internal/devices"

	"github.com/gin-gonic/gin"
)

// StateCache provides last-polled canonical states without a cloud round trip
type StateCache interface {
	Latest(deviceID string) (devices.DeviceState, bool)
}

// DevicesHandler handles device-related requests
type DevicesHandler struct {
	service devices.StateService
	cache   StateCache
	logger  *slog.Logger
}

// NewDevicesHandler creates a new devices handler. cache may be nil when the
// poller is not running.
func NewDevicesHandler(service devices.StateService, cache StateCache, logger *slog.Logger) *DevicesHandler {
	return &DevicesHandler{
		service: service,
		cache:   cache,
		logger:  logger,
	}
}

// ListDevices returns all discovered devices
// GET /devices
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	summaries, err := h.service.ListDevices(c.Request.Context())
	if err != nil {
		status, code := statusForError(err)
		h.logger.Error("Failed to list devices",
			"component", "api",
			"request_id", c.GetString("X-Request-ID"),
			"error", err,
		)
		c.JSON(status, gin.H{"error": "Failed to list devices", "code": code})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// GetState returns canonical state for one device. ?cached=true serves the
// poller's last-known state without a cloud round trip.
// GET /devices/:id/state
func (h *DevicesHandler) GetState(c *gin.Context) {
	deviceID := c.Param("id")

	if c.Query("cached") == "true" && h.cache != nil {
		if state, ok := h.cache.Latest(deviceID); ok {
			c.JSON(http.StatusOK, state)
			return
		}
	}

	state, err := h.service.GetState(c.Request.Context(), deviceID)
	if err != nil {
		status, code := statusForError(err)
		h.logger.Error("Failed to get device state",
			"component", "api",
			"device_id", deviceID,
			"error", err,
		)
		c.JSON(status, gin.H{"error": "Failed to get device state", "code": code})
		return
	}
	c.JSON(http.StatusOK, state)
}

// SendCommand applies a canonical intent to one device
// POST /devices/:id/command
func (h *DevicesHandler) SendCommand(c *gin.Context) {
	deviceID := c.Param("id")

	var intent devices.Intent
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	if err := h.service.SendCommand(c.Request.Context(), deviceID, intent); err != nil {
		status, code := statusForError(err)
		h.logger.Error("Failed to send command",
			"component", "api",
			"device_id", deviceID,
			"error", err,
		)
		c.JSON(status, gin.H{"error": "Failed to send command", "code": code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Command sent"})
}
