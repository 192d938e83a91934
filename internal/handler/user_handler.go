package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ManikLakhanpal/Tube-Pay/internal/audit"
	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/middleware"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/response"
)

// Login exchanges an identity token for an access token, registering the
// user on first login.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	email := middleware.GetEmail(c)
	if email == "" {
		response.Unauthorized(c, "identity token carries no email")
		return
	}

	user, created, err := h.users.FindOrCreate(ctx, middleware.GetName(c), email)
	if err != nil {
		writeError(c, err, "failed to login")
		return
	}

	token, expiresAt, err := h.tokens.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to issue access token")
		response.InternalError(c, "failed to login")
		return
	}

	result := &domain.LoginResponse{User: user, AccessToken: token, ExpiresAt: expiresAt}
	if created {
		response.Created(c, result)
		return
	}
	audit.Log(ctx, audit.ActionUserLogin, user.ID, user.ID, "user logged in")
	response.Success(c, result)
}

// GetMe returns the caller's profile.
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "failed to get user")
		return
	}
	response.Success(c, user)
}

// GetUser returns a public profile.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to get user")
		return
	}
	response.Success(c, user)
}

// UpdateMe changes the caller's profile.
func (h *Handler) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req domain.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update user request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.UpdateUser(ctx, userID, userID, req)
	if err != nil {
		writeError(c, err, "failed to update user")
		return
	}
	response.Success(c, user)
}

// DeleteMe removes the caller's account and revokes its tokens.
func (h *Handler) DeleteMe(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), userID, userID); err != nil {
		writeError(c, err, "failed to delete user")
		return
	}
	h.tokens.RevokeUserTokens(userID)

	c.Status(http.StatusNoContent)
}
