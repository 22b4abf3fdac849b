package handlers

import (
	"errors"
	"net/http"

	"grillstream/internal/profile"
	"grillstream/internal/service"

	"github.com/gin-gonic/gin"
)

type startSessionRequest struct {
	DeviceID  string `json:"device_id" binding:"required"`
	ChannelID string `json:"channel_id" binding:"required"`
	ProfileID string `json:"profile_id" binding:"required"`
}

type stopSessionRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
}

type injectEventRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
}

func (h *Handler) listProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": h.services.Profiles.List()})
}

func (h *Handler) startSession(c *gin.Context) {
	var req startSessionRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	sess, err := h.services.Start(c.Request.Context(), req.DeviceID, req.ChannelID, req.ProfileID)
	if err != nil {
		switch {
		case errors.Is(err, profile.ErrUnknownProfile),
			errors.Is(err, service.ErrDeviceNotFound),
			errors.Is(err, service.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			h.logAndJSONError(c, http.StatusInternalServerError, "failed to start session", "session_start_failed", err,
				"device", req.DeviceID, "channel", req.ChannelID)
		}
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) stopSession(c *gin.Context) {
	var req stopSessionRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	if err := h.services.Stop(c.Request.Context(), req.ChannelID); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to stop session", "session_stop_failed", err,
			"channel", req.ChannelID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *Handler) injectEvent(c *gin.Context) {
	var req injectEventRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	ev, err := h.services.Inject(c.Request.Context(), req.ChannelID, req.Kind)
	if err != nil {
		if errors.Is(err, service.ErrNoSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ev)
}
