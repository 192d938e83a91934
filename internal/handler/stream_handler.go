package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/response"
)

// ListLiveStreams returns every live stream.
func (h *Handler) ListLiveStreams(c *gin.Context) {
	streams, err := h.streams.ListLiveStreams(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to list live streams")
		return
	}
	response.Success(c, streams)
}

// GetStream returns a stream with its streamer and successful payments.
func (h *Handler) GetStream(c *gin.Context) {
	stream, err := h.streams.GetStream(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to get stream")
		return
	}
	response.Success(c, stream)
}

// GetDonationTotal returns the running donation total of a stream.
func (h *Handler) GetDonationTotal(c *gin.Context) {
	response.Success(c, h.streams.GetDonationTotal(c.Request.Context(), c.Param("id")))
}

// CreateStream starts a stream owned by the caller.
func (h *Handler) CreateStream(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req domain.CreateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid create stream request")
		response.BadRequest(c, err.Error())
		return
	}

	stream, err := h.streams.CreateStream(ctx, userID, &req)
	if err != nil {
		writeError(c, err, "failed to create stream")
		return
	}
	response.Created(c, stream)
}

// UpdateStream changes a stream owned by the caller.
func (h *Handler) UpdateStream(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req domain.StreamUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update stream request")
		response.BadRequest(c, err.Error())
		return
	}

	stream, err := h.streams.UpdateStream(ctx, userID, c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to update stream")
		return
	}
	response.Success(c, stream)
}

// DeleteStream removes a stream owned by the caller.
func (h *Handler) DeleteStream(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.streams.DeleteStream(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err, "failed to delete stream")
		return
	}
	c.Status(http.StatusNoContent)
}
