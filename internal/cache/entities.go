package cache

import (
	"context"
	"strings"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
)

// Live stream list.

func (c *RedisCache) GetLiveStreams(ctx context.Context) Result[[]domain.Stream] {
	return getEntry(ctx, c, liveStreamsCodec, liveStreamsKey())
}

func (c *RedisCache) SetLiveStreams(ctx context.Context, streams []domain.Stream) {
	if streams == nil {
		streams = []domain.Stream{}
	}
	setEntry(ctx, c, liveStreamsCodec, liveStreamsKey(), streams)
}

func (c *RedisCache) InvalidateLiveStreams(ctx context.Context) {
	c.del(ctx, NSLiveStreams, liveStreamsKey())
}

// Stream detail.

func (c *RedisCache) GetStream(ctx context.Context, streamID string) Result[domain.Stream] {
	return getEntry(ctx, c, streamCodec, entityKey(NSStream, streamID))
}

func (c *RedisCache) SetStream(ctx context.Context, stream *domain.Stream) {
	setEntry(ctx, c, streamCodec, entityKey(NSStream, stream.ID), *stream)
}

func (c *RedisCache) InvalidateStream(ctx context.Context, streamID string) {
	c.del(ctx, NSStream, entityKey(NSStream, streamID))
}

// User profile, addressable by id and by email.

// GetUser never reads an id containing ':', which would address an entry
// of the nested user:email namespace.
func (c *RedisCache) GetUser(ctx context.Context, userID string) Result[domain.User] {
	if strings.Contains(userID, ":") {
		cacheReads.WithLabelValues(string(NSUser), Miss.String()).Inc()
		return Result[domain.User]{Status: Miss}
	}
	return getEntry(ctx, c, userCodec, entityKey(NSUser, userID))
}

func (c *RedisCache) SetUser(ctx context.Context, user *domain.User) {
	setEntry(ctx, c, userCodec, entityKey(NSUser, user.ID), *user)
}

func (c *RedisCache) InvalidateUser(ctx context.Context, userID string) {
	c.del(ctx, NSUser, entityKey(NSUser, userID))
}

func (c *RedisCache) GetUserByEmail(ctx context.Context, email string) Result[domain.User] {
	return getEntry(ctx, c, userEmailCodec, entityKey(NSUserEmail, email))
}

func (c *RedisCache) SetUserByEmail(ctx context.Context, user *domain.User) {
	setEntry(ctx, c, userEmailCodec, entityKey(NSUserEmail, user.Email), *user)
}

func (c *RedisCache) InvalidateUserByEmail(ctx context.Context, email string) {
	c.del(ctx, NSUserEmail, entityKey(NSUserEmail, email))
}

// Payment detail.

func (c *RedisCache) GetPayment(ctx context.Context, paymentID string) Result[domain.Payment] {
	return getEntry(ctx, c, paymentCodec, entityKey(NSPayment, paymentID))
}

func (c *RedisCache) SetPayment(ctx context.Context, payment *domain.Payment) {
	setEntry(ctx, c, paymentCodec, entityKey(NSPayment, payment.ID), *payment)
}

func (c *RedisCache) InvalidatePayment(ctx context.Context, paymentID string) {
	c.del(ctx, NSPayment, entityKey(NSPayment, paymentID))
}

// Payment history pages. status "" is stored under "all"; page is 1-based.

func (c *RedisCache) GetSentPage(ctx context.Context, userID, status string, page int) Result[domain.PaymentPage] {
	return getEntry(ctx, c, sentPageCodec, pageKey(NSSentPayments, userID, status, page))
}

func (c *RedisCache) SetSentPage(ctx context.Context, userID, status string, page int, p *domain.PaymentPage) {
	setEntry(ctx, c, sentPageCodec, pageKey(NSSentPayments, userID, status, page), *p)
}

func (c *RedisCache) GetReceivedPage(ctx context.Context, streamerID, status string, page int) Result[domain.PaymentPage] {
	return getEntry(ctx, c, recvPageCodec, pageKey(NSReceivedPayments, streamerID, status, page))
}

func (c *RedisCache) SetReceivedPage(ctx context.Context, streamerID, status string, page int, p *domain.PaymentPage) {
	setEntry(ctx, c, recvPageCodec, pageKey(NSReceivedPayments, streamerID, status, page), *p)
}

// Stream payment stats.

func (c *RedisCache) GetStreamStats(ctx context.Context, streamID string) Result[domain.StreamPaymentStats] {
	return getEntry(ctx, c, streamStatsCodec, entityKey(NSStreamStats, streamID))
}

func (c *RedisCache) SetStreamStats(ctx context.Context, stats *domain.StreamPaymentStats) {
	setEntry(ctx, c, streamStatsCodec, entityKey(NSStreamStats, stats.StreamID), *stats)
}

func (c *RedisCache) InvalidateStreamStats(ctx context.Context, streamID string) {
	c.del(ctx, NSStreamStats, entityKey(NSStreamStats, streamID))
}

// InvalidatePaymentRelated clears what a payment status change makes stale
// on the sender's side: the payment detail, every sent-history page of the
// sender, the stream's donation counter and the stream detail. The
// streamer's received-history pages are left to expire on their own.
func (c *RedisCache) InvalidatePaymentRelated(ctx context.Context, paymentID, userID, streamID string) {
	c.del(ctx, NSPayment, entityKey(NSPayment, paymentID))
	c.scanDelete(ctx, NSSentPayments, pagePattern(NSSentPayments, userID))
	c.del(ctx, NSDonations, entityKey(NSDonations, streamID))
	c.del(ctx, NSStream, entityKey(NSStream, streamID))
}

// InvalidateUserPages clears every sent and received history page of a
// user.
func (c *RedisCache) InvalidateUserPages(ctx context.Context, userID string) {
	c.scanDelete(ctx, NSSentPayments, pagePattern(NSSentPayments, userID))
	c.scanDelete(ctx, NSReceivedPayments, pagePattern(NSReceivedPayments, userID))
}

// InvalidateRemovedPayments clears everything built from payments the store
// deleted along with their stream or a party: each payment detail, the
// detail, stats and donation counter of every stream they went to, and
// every history page of their senders and streamers.
func (c *RedisCache) InvalidateRemovedPayments(ctx context.Context, removed []domain.PaymentRef) {
	streams := make(map[string]struct{})
	owners := make(map[string]struct{})
	for _, ref := range removed {
		c.del(ctx, NSPayment, entityKey(NSPayment, ref.ID))
		streams[ref.StreamID] = struct{}{}
		owners[ref.UserID] = struct{}{}
		owners[ref.StreamerID] = struct{}{}
	}
	for id := range streams {
		c.del(ctx, NSStream, entityKey(NSStream, id))
		c.del(ctx, NSStreamStats, entityKey(NSStreamStats, id))
		c.del(ctx, NSDonations, entityKey(NSDonations, id))
	}
	for id := range owners {
		c.InvalidateUserPages(ctx, id)
	}
}
