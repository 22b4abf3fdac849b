package handlers

import (
	"net/http"
	"time"

	"grillstream/internal/models"

	"github.com/gin-gonic/gin"
)

type createRuleRequest struct {
	DeviceID   string  `json:"device_id" binding:"required"`
	ChannelID  string  `json:"channel_id"`
	Kind       string  `json:"kind" binding:"required"`
	ThresholdF float64 `json:"threshold"`
	DebounceMS int64   `json:"debounce_ms"`
}

func (h *Handler) listRules(c *gin.Context) {
	rules, err := h.services.Rules(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list rules", "rules_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (h *Handler) createRule(c *gin.Context) {
	var req createRuleRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	rule, err := h.services.CreateRule(c.Request.Context(), models.AlertRule{
		DeviceID:   req.DeviceID,
		ChannelID:  req.ChannelID,
		Kind:       req.Kind,
		ThresholdF: req.ThresholdF,
		Debounce:   time.Duration(req.DebounceMS) * time.Millisecond,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) deleteRule(c *gin.Context) {
	if err := h.services.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to delete rule", "rule_delete_failed", err,
			"rule", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) firingAlerts(c *gin.Context) {
	firing := h.services.Firing(c.Param("deviceId"))
	if firing == nil {
		firing = []models.AlertInstance{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": firing})
}
