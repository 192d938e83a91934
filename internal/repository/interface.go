package repository

import (
	"context"
	"errors"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrStreamNotFound  = errors.New("stream not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrPaymentExists   = errors.New("payment already exists")
	ErrRoleNotAllowed  = errors.New("role change not allowed")
	ErrStatusConflict  = errors.New("payment status changed concurrently")
	ErrPaymentSettled  = errors.New("payment already settled")
)

// UserRepository defines the interface for user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update applies the non-nil fields and returns the stored result. Role
	// values outside the self-assignable set fail with ErrRoleNotAllowed.
	Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
	// Delete removes the user along with their streams and payments and
	// returns every payment it removed.
	Delete(ctx context.Context, id string) ([]domain.PaymentRef, error)
}

// StreamRepository defines the interface for stream persistence.
type StreamRepository interface {
	Create(ctx context.Context, stream *domain.Stream) error
	// GetByID loads the stream with its streamer and successful payments.
	GetByID(ctx context.Context, id string) (*domain.Stream, error)
	GetOwnerID(ctx context.Context, id string) (string, error)
	ListLive(ctx context.Context) ([]domain.Stream, error)
	Update(ctx context.Context, id string, update domain.StreamUpdate) (*domain.Stream, error)
	// Delete removes the stream along with its payments and returns the
	// payments it removed.
	Delete(ctx context.Context, id string) ([]domain.PaymentRef, error)
}

// PaymentFilter selects payments for a history page. Exactly one of
// SenderID and StreamerID is expected to be set.
type PaymentFilter struct {
	SenderID   string
	StreamerID string
	// Status is empty for every status.
	Status domain.PaymentStatus
}

// PaymentRepository defines the interface for payment persistence.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	// UpdateStatus sets the status and returns the updated payment together
	// with the status it had before. A SUCCESS payment only accepts SUCCESS
	// again; any other target fails with ErrPaymentSettled.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Payment, domain.PaymentStatus, error)
	Count(ctx context.Context, filter PaymentFilter) (int, error)
	// List returns payments newest first.
	List(ctx context.Context, filter PaymentFilter, offset, limit int) ([]domain.Payment, error)
	StreamStats(ctx context.Context, streamID string) (*domain.StreamPaymentStats, error)
}
