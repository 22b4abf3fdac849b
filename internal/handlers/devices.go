package handlers

import (
	"errors"
	"net/http"
	"time"

	"grillstream/internal/cache"
	"grillstream/internal/models"
	"grillstream/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// createDeviceRequest registers a device with its channels.
type createDeviceRequest struct {
	Name      string `json:"name" binding:"required"`
	Simulated bool   `json:"simulated"`
	Address   string `json:"address"`
	Channels  []struct {
		Name      string `json:"name" binding:"required"`
		ProbeType string `json:"probe_type" binding:"required"`
	} `json:"channels" binding:"required,min=1"`
}

func (h *Handler) listDevices(c *gin.Context) {
	// registry access goes through the service layer's cache in snapshot
	// paths; the raw listing hits the repo directly
	devices, err := h.services.Poller.Devices(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list devices", "devices_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (h *Handler) createDevice(c *gin.Context) {
	var req createDeviceRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if !req.Simulated && req.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "real devices require a poll address"})
		return
	}

	dev := models.Device{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Simulated: req.Simulated,
		Address:   req.Address,
		CreatedAt: time.Now().UTC(),
	}
	for _, ch := range req.Channels {
		switch ch.ProbeType {
		case models.ProbeFood, models.ProbeAmbient, models.ProbeSurface:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown probe type: " + ch.ProbeType})
			return
		}
		dev.Channels = append(dev.Channels, models.Channel{
			ID:        uuid.NewString(),
			DeviceID:  dev.ID,
			Name:      ch.Name,
			ProbeType: ch.ProbeType,
			Unit:      models.UnitFahrenheit,
		})
	}

	if err := h.services.Poller.Register(c.Request.Context(), dev); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to create device", "device_create_failed", err)
		return
	}
	c.JSON(http.StatusOK, dev)
}

func (h *Handler) getDevice(c *gin.Context) {
	dev, err := h.services.Poller.Device(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load device", "device_get_failed", err)
		return
	}
	if dev == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	c.JSON(http.StatusOK, dev)
}

func (h *Handler) getSnapshot(c *gin.Context) {
	snap, err := h.services.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to build snapshot", "snapshot_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// getStatus serves the cached battery/signal/connectivity snapshot. A
// cache miss means the device has not reported within the status TTL.
func (h *Handler) getStatus(c *gin.Context) {
	v, err := h.store.Get(cache.NSStatus, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, models.DeviceStatus{
			DeviceID:         c.Param("id"),
			ConnectionStatus: models.ConnOffline,
		})
		return
	}
	st, ok := v.(models.DeviceStatus)
	if !ok {
		c.JSON(http.StatusOK, models.DeviceStatus{
			DeviceID:         c.Param("id"),
			ConnectionStatus: models.ConnOffline,
		})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) getRollup(c *gin.Context) {
	roll, err := h.services.Rollup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no fresh rollup for channel"})
		return
	}
	c.JSON(http.StatusOK, roll)
}
