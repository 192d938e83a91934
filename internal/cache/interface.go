package cache

import (
	"context"
	"time"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
)

// Cache is the typed cache surface the services depend on.
type Cache interface {
	GetLiveStreams(ctx context.Context) Result[[]domain.Stream]
	SetLiveStreams(ctx context.Context, streams []domain.Stream)
	InvalidateLiveStreams(ctx context.Context)

	GetStream(ctx context.Context, streamID string) Result[domain.Stream]
	SetStream(ctx context.Context, stream *domain.Stream)
	InvalidateStream(ctx context.Context, streamID string)

	GetUser(ctx context.Context, userID string) Result[domain.User]
	SetUser(ctx context.Context, user *domain.User)
	InvalidateUser(ctx context.Context, userID string)
	GetUserByEmail(ctx context.Context, email string) Result[domain.User]
	SetUserByEmail(ctx context.Context, user *domain.User)
	InvalidateUserByEmail(ctx context.Context, email string)

	GetPayment(ctx context.Context, paymentID string) Result[domain.Payment]
	SetPayment(ctx context.Context, payment *domain.Payment)
	InvalidatePayment(ctx context.Context, paymentID string)

	GetSentPage(ctx context.Context, userID, status string, page int) Result[domain.PaymentPage]
	SetSentPage(ctx context.Context, userID, status string, page int, p *domain.PaymentPage)
	GetReceivedPage(ctx context.Context, streamerID, status string, page int) Result[domain.PaymentPage]
	SetReceivedPage(ctx context.Context, streamerID, status string, page int, p *domain.PaymentPage)

	GetStreamStats(ctx context.Context, streamID string) Result[domain.StreamPaymentStats]
	SetStreamStats(ctx context.Context, stats *domain.StreamPaymentStats)
	InvalidateStreamStats(ctx context.Context, streamID string)

	InvalidatePaymentRelated(ctx context.Context, paymentID, userID, streamID string)
	InvalidateUserPages(ctx context.Context, userID string)
	InvalidateRemovedPayments(ctx context.Context, removed []domain.PaymentRef)

	IncrementDonationTotal(ctx context.Context, streamID string, amount float64) (float64, bool)
	GetDonationTotal(ctx context.Context, streamID string) float64
	CheckRateLimit(ctx context.Context, userID, action string, limit int64, window time.Duration) bool
}

// Admin is the operational surface behind the cache-admin endpoints.
type Admin interface {
	HealthCheck(ctx context.Context) HealthStatus
	Stats(ctx context.Context) (*Stats, error)
	ClearNamespace(ctx context.Context, prefix string) int
	ClearPaymentCaches(ctx context.Context) int
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Admin = (*RedisCache)(nil)
)
