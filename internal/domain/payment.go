package domain

import "time"

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed:
		return true
	}
	return false
}

// Payment is a donation from a viewer to a stream. Its id is the payment
// gateway's order id.
type Payment struct {
	ID        string         `json:"id"`
	Amount    float64        `json:"amount"`
	Message   *string        `json:"message"`
	UserID    string         `json:"userId"`
	StreamID  string         `json:"streamId"`
	Status    PaymentStatus  `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	User      *UserSummary   `json:"user,omitempty"`
	Stream    *PaymentStream `json:"stream,omitempty"`
}

// PaymentRef locates a payment removed together with its stream or one of
// its parties.
type PaymentRef struct {
	ID         string
	UserID     string
	StreamID   string
	StreamerID string
}

// PaymentStream is the stream a listed payment went to.
type PaymentStream struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	StreamLink *string          `json:"streamLink"`
	Streamer   *StreamerSummary `json:"streamer,omitempty"`
}

// Pagination describes one page of a list.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
	Limit       int  `json:"limit"`
}

// NewPagination computes page metadata for a 1-based page.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
		Limit:       limit,
	}
}

// PaymentPage is one page of a payment history.
type PaymentPage struct {
	Payments   []Payment  `json:"payments"`
	Pagination Pagination `json:"pagination"`
}

// StreamPaymentStats aggregates the successful payments of a stream.
type StreamPaymentStats struct {
	StreamID           string    `json:"streamId"`
	SuccessfulPayments int64     `json:"successfulPayments"`
	TotalAmount        float64   `json:"totalAmount"`
	ComputedAt         time.Time `json:"computedAt"`
}

// CreatePaymentRequest is submitted after the gateway issued an order.
type CreatePaymentRequest struct {
	OrderID  string  `json:"orderId" binding:"required,max=64"`
	Amount   float64 `json:"amount" binding:"required"`
	Message  *string `json:"message" binding:"omitempty,max=500"`
	StreamID string  `json:"streamId" binding:"required"`
}

// UpdatePaymentStatusRequest is sent once the gateway settles an order. A
// move to SUCCESS carries the gateway's payment id and signature.
type UpdatePaymentStatusRequest struct {
	Status           PaymentStatus `json:"status" binding:"required"`
	GatewayPaymentID string        `json:"gatewayPaymentId" binding:"max=64"`
	Signature        string        `json:"signature" binding:"max=128"`
}

// ListPaymentsRequest holds the query of a payment history request.
type ListPaymentsRequest struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Status string `form:"status"`
}
