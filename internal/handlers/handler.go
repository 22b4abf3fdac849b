package handlers

import (
	"net/http"

	"grillstream/internal/cache"
	"grillstream/internal/logger"
	"grillstream/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config carries the HTTP-layer knobs.
type Config struct {
	RateLimit int // requests per rate-limit window per client; 0 disables
}

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	store    *cache.Store
	log      *logger.Logger
	cfg      Config
}

// NewHandler constructs the HTTP handler with its dependencies.
func NewHandler(services *service.Service, store *cache.Store, log *logger.Logger, cfg Config) *Handler {
	return &Handler{services: services, store: store, log: log, cfg: cfg}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// websocket stream endpoint, plain HTTP upgrade on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
		auth.POST("/logout", h.logout)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.rateLimitMiddleware, h.userIDMiddleware)
	{
		devices := api.Group("/devices")
		{
			devices.GET("", h.listDevices)
			devices.POST("", h.createDevice)
			devices.GET("/:id", h.getDevice)
			devices.GET("/:id/status", h.getStatus)
			devices.GET("/:id/snapshot", h.getSnapshot)
		}

		api.GET("/profiles", h.listProfiles)

		sessions := api.Group("/sessions")
		{
			sessions.POST("/start", h.startSession)
			sessions.POST("/stop", h.stopSession)
			sessions.POST("/event", h.injectEvent)
		}

		alerts := api.Group("/alerts")
		{
			alerts.GET("/rules", h.listRules)
			alerts.POST("/rules", h.createRule)
			alerts.DELETE("/rules/:id", h.deleteRule)
			alerts.GET("/firing/:deviceId", h.firingAlerts)
		}

		api.GET("/channels/:id/rollup", h.getRollup)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// logAndJSONError centralizes error logging and the JSON error response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// bindJSONOrBadRequest binds the request body into dst, answering 400 on
// failure. Returns false if the request was already handled.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return false
	}
	return true
}
