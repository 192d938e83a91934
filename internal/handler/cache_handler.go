package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ManikLakhanpal/Tube-Pay/internal/audit"
	"github.com/ManikLakhanpal/Tube-Pay/internal/cache"
	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/middleware"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/response"
)

// requireAdmin writes a 403 unless the caller's token carries the ADMIN
// role.
func requireAdmin(c *gin.Context) (string, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return "", false
	}
	if domain.Role(middleware.GetRole(c)) != domain.RoleAdmin {
		response.Forbidden(c, "admin role required")
		return "", false
	}
	return userID, true
}

// CacheHealth pings the cache backend. An unhealthy cache answers 503 with
// the same body.
func (h *Handler) CacheHealth(c *gin.Context) {
	hs := h.cacheAdmin.HealthCheck(c.Request.Context())
	if hs.Status != cache.StatusHealthy {
		c.JSON(http.StatusServiceUnavailable, response.Response{Success: false, Data: hs})
		return
	}
	response.Success(c, hs)
}

// CacheStats reports key counts and server statistics.
func (h *Handler) CacheStats(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	stats, err := h.cacheAdmin.Stats(c.Request.Context())
	if err != nil {
		response.ServiceUnavailable(c, "cache unavailable")
		return
	}
	response.Success(c, stats)
}

// ClearPaymentCaches drops every payment-related cache entry.
func (h *Handler) ClearPaymentCaches(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := requireAdmin(c)
	if !ok {
		return
	}

	deleted := h.cacheAdmin.ClearPaymentCaches(ctx)
	audit.LogWithDetail(ctx, audit.ActionCacheClear, userID, "payments",
		strconv.Itoa(deleted), "payment caches cleared")

	response.Success(c, gin.H{"deleted": deleted})
}
