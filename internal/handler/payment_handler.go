package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/response"
)

// CreatePayment records a pending payment order for the caller.
func (h *Handler) CreatePayment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req domain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid create payment request")
		response.BadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.CreatePayment(ctx, userID, &req)
	if err != nil {
		writeError(c, err, "failed to create payment")
		return
	}
	response.Created(c, payment)
}

// GetPayment returns one payment the caller sent or received.
func (h *Handler) GetPayment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to get payment")
		return
	}
	response.Success(c, payment)
}

// UpdatePaymentStatus settles a payment the caller sent.
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req domain.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update payment status request")
		response.BadRequest(c, err.Error())
		return
	}

	req.Status = domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	payment, err := h.payments.UpdatePaymentStatus(ctx, userID, c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to update payment status")
		return
	}
	response.Success(c, payment)
}

// ListSentPayments returns a page of payments the caller sent.
func (h *Handler) ListSentPayments(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req domain.ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.payments.ListSentPayments(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err, "failed to list sent payments")
		return
	}
	response.Success(c, page)
}

// ListReceivedPayments returns a page of payments the caller's streams
// received.
func (h *Handler) ListReceivedPayments(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req domain.ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.payments.ListReceivedPayments(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err, "failed to list received payments")
		return
	}
	response.Success(c, page)
}

// GetStreamStats returns the successful payment aggregate of a stream.
func (h *Handler) GetStreamStats(c *gin.Context) {
	stats, err := h.payments.GetStreamStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to get stream stats")
		return
	}
	response.Success(c, stats)
}
