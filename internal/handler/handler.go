package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManikLakhanpal/Tube-Pay/internal/cache"
	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/internal/service"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/middleware"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/response"
)

// TokenIssuer issues and revokes access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID, email, role string) (string, time.Time, error)
	RevokeUserTokens(userID string)
}

// Handler handles HTTP requests for the donation API.
type Handler struct {
	users          service.UserService
	streams        service.StreamService
	payments       service.PaymentService
	cacheAdmin     cache.Admin
	tokens         TokenIssuer
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	users service.UserService,
	streams service.StreamService,
	payments service.PaymentService,
	cacheAdmin cache.Admin,
	tokens TokenIssuer,
	authMiddleware *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		users:          users,
		streams:        streams,
		payments:       payments,
		cacheAdmin:     cacheAdmin,
		tokens:         tokens,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := h.authMiddleware.RequireAuth()
	streamer := requireRole(domain.RoleStreamer, domain.RoleAdmin)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", h.authMiddleware.RequireIdentity(), h.Login)

		streams := api.Group("/streams")
		{
			streams.GET("/live", h.ListLiveStreams)
			streams.GET("/:id", h.GetStream)
			streams.GET("/:id/donations", h.GetDonationTotal)
			streams.GET("/:id/stats", h.GetStreamStats)
			streams.POST("", auth, streamer, h.CreateStream)
			streams.PATCH("/:id", auth, streamer, h.UpdateStream)
			streams.DELETE("/:id", auth, streamer, h.DeleteStream)
		}

		users := api.Group("/users")
		{
			users.GET("/me", auth, h.GetMe)
			users.PATCH("/me", auth, h.UpdateMe)
			users.DELETE("/me", auth, h.DeleteMe)
			users.GET("/:id", h.GetUser)
		}

		payments := api.Group("/payments")
		payments.Use(auth)
		{
			payments.POST("", h.CreatePayment)
			payments.GET("/sent", h.ListSentPayments)
			payments.GET("/received", h.ListReceivedPayments)
			payments.GET("/:id", h.GetPayment)
			payments.PUT("/:id/status", h.UpdatePaymentStatus)
		}

		cacheGroup := api.Group("/cache")
		{
			cacheGroup.GET("/health", h.CacheHealth)
			cacheGroup.GET("/stats", auth, h.CacheStats)
			cacheGroup.DELETE("/payments", auth, h.ClearPaymentCaches)
		}
	}
}

// writeError maps service errors onto the response envelope. Anything
// unrecognised is logged and reported as a 500 with fallback as message.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, service.ErrStreamNotFound):
		response.NotFound(c, "stream not found")
	case errors.Is(err, service.ErrPaymentNotFound):
		response.NotFound(c, "payment not found")
	case errors.Is(err, service.ErrNotProfileOwner):
		response.Forbidden(c, "you can only modify your own profile")
	case errors.Is(err, service.ErrNotStreamOwner):
		response.Forbidden(c, "you can only modify your own streams")
	case errors.Is(err, service.ErrNotPaymentOwner):
		response.Forbidden(c, "you can only settle your own payments")
	case errors.Is(err, service.ErrNotPaymentParty):
		response.Forbidden(c, "you can only view payments you sent or received")
	case errors.Is(err, service.ErrUnverified):
		response.Forbidden(c, "payment signature verification failed")
	case errors.Is(err, service.ErrRoleNotAllowed):
		response.Forbidden(c, "role cannot be self-assigned")
	case errors.Is(err, service.ErrInvalidAmount):
		response.BadRequest(c, "amount must be a positive number")
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, "invalid payment status")
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, "invalid input")
	case errors.Is(err, service.ErrRateLimited):
		response.TooManyRequests(c, "too many payment orders, try again later")
	case errors.Is(err, service.ErrPaymentExists):
		response.Conflict(c, "payment already exists")
	case errors.Is(err, service.ErrStatusConflict):
		response.Conflict(c, "payment status changed concurrently")
	case errors.Is(err, service.ErrPaymentSettled):
		response.Conflict(c, "payment already settled")
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str("path", c.FullPath()).Msg(fallback)
		response.InternalError(c, fallback)
	}
}

// requireUserID returns the authenticated user id or writes a 401.
func requireUserID(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return "", false
	}
	return userID, true
}

// requireRole aborts with a 403 unless the caller's token carries one of
// roles. It runs after RequireAuth.
func requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := domain.Role(middleware.GetRole(c))
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient role")
	}
}
