package service

import (
	"context"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
)

// UserService defines user profile reads and writes.
type UserService interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindOrCreate returns the user registered under email, creating it on
	// first login. created reports whether a new user was stored.
	FindOrCreate(ctx context.Context, name, email string) (user *domain.User, created bool, err error)
	UpdateUser(ctx context.Context, actorID, id string, update domain.UserUpdate) (*domain.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
}

// StreamService defines stream reads and writes.
type StreamService interface {
	GetStream(ctx context.Context, id string) (*domain.Stream, error)
	ListLiveStreams(ctx context.Context) ([]domain.Stream, error)
	CreateStream(ctx context.Context, streamerID string, req *domain.CreateStreamRequest) (*domain.Stream, error)
	UpdateStream(ctx context.Context, actorID, id string, update domain.StreamUpdate) (*domain.Stream, error)
	DeleteStream(ctx context.Context, actorID, id string) error
	GetDonationTotal(ctx context.Context, id string) *domain.DonationTotal
}

// PaymentService defines payment reads and writes.
type PaymentService interface {
	CreatePayment(ctx context.Context, userID string, req *domain.CreatePaymentRequest) (*domain.Payment, error)
	// GetPayment returns a payment to its sender or to the streamer who
	// received it.
	GetPayment(ctx context.Context, actorID, id string) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, actorID, id string, req domain.UpdatePaymentStatusRequest) (*domain.Payment, error)
	ListSentPayments(ctx context.Context, userID string, req domain.ListPaymentsRequest) (*domain.PaymentPage, error)
	ListReceivedPayments(ctx context.Context, streamerID string, req domain.ListPaymentsRequest) (*domain.PaymentPage, error)
	GetStreamStats(ctx context.Context, streamID string) (*domain.StreamPaymentStats, error)
}

// SettlementVerifier checks the gateway's proof that an order was paid.
type SettlementVerifier interface {
	Verify(orderID, gatewayPaymentID, signature string) bool
}
