package handlers

import (
	"net/http"

	"grillstream/internal/cache"

	"github.com/gin-gonic/gin"
)

func (h *Handler) userIDMiddleware(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing or malformed Authorization header",
		})
		return
	}

	userID, err := h.services.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set("userId", userID)
	c.Next()
}

// rateLimitMiddleware enforces a fixed-window limit per client IP. The
// counter lives in the rate-limit cache namespace; its TTL is the window,
// so the whole window expires atomically.
func (h *Handler) rateLimitMiddleware(c *gin.Context) {
	if h.cfg.RateLimit <= 0 {
		c.Next()
		return
	}
	count, err := h.store.Increment(cache.NSRateLimit, c.ClientIP(), 1)
	if err != nil {
		// cache trouble must not lock users out
		if h.log != nil {
			h.log.Warnw("rate limit counter unavailable", "err", err)
		}
		c.Next()
		return
	}
	if count > int64(h.cfg.RateLimit) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "rate limit exceeded",
		})
		return
	}
	c.Next()
}
