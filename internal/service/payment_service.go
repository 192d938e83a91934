package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ManikLakhanpal/Tube-Pay/internal/audit"
	"github.com/ManikLakhanpal/Tube-Pay/internal/cache"
	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/internal/repository"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/pubsub"
)

const (
	// ActionCreateOrder is the rate-limited action for payment creation.
	ActionCreateOrder = "create_order"

	defaultPageLimit = 10
	maxPageLimit     = 100
	maxPage          = 1000
)

// RateLimit is a fixed-window allowance.
type RateLimit struct {
	Limit  int64
	Window time.Duration
}

// DefaultCreateOrderLimit allows 10 payment orders per user per minute.
var DefaultCreateOrderLimit = RateLimit{Limit: 10, Window: time.Minute}

// paymentServiceImpl implements PaymentService.
type paymentServiceImpl struct {
	repo        repository.PaymentRepository
	streams     repository.StreamRepository
	cache       cache.Cache
	publisher   pubsub.Publisher
	verifier    SettlementVerifier
	createLimit RateLimit
	sf          singleflight.Group
}

// NewPaymentService creates a new payment service. A nil publisher drops
// superchat events; a nil verifier rejects every settlement.
func NewPaymentService(
	repo repository.PaymentRepository,
	streams repository.StreamRepository,
	c cache.Cache,
	publisher pubsub.Publisher,
	verifier SettlementVerifier,
	createLimit RateLimit,
) PaymentService {
	if publisher == nil {
		publisher = pubsub.NopPublisher{}
	}
	if verifier == nil {
		verifier = rejectSettlements{}
	}
	if createLimit.Limit <= 0 || createLimit.Window <= 0 {
		createLimit = DefaultCreateOrderLimit
	}
	return &paymentServiceImpl{
		repo:        repo,
		streams:     streams,
		cache:       c,
		publisher:   publisher,
		verifier:    verifier,
		createLimit: createLimit,
	}
}

func translatePaymentErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		return ErrPaymentNotFound
	case errors.Is(err, repository.ErrStreamNotFound):
		return ErrStreamNotFound
	case errors.Is(err, repository.ErrPaymentExists):
		return ErrPaymentExists
	case errors.Is(err, repository.ErrStatusConflict):
		return ErrStatusConflict
	case errors.Is(err, repository.ErrPaymentSettled):
		return ErrPaymentSettled
	}
	return err
}

type rejectSettlements struct{}

func (rejectSettlements) Verify(string, string, string) bool { return false }

// CreatePayment records a PENDING payment for a gateway order. The payment
// is not cached until it is first read.
func (s *paymentServiceImpl) CreatePayment(ctx context.Context, userID string, req *domain.CreatePaymentRequest) (*domain.Payment, error) {
	if !s.cache.CheckRateLimit(ctx, userID, ActionCreateOrder, s.createLimit.Limit, s.createLimit.Window) {
		return nil, ErrRateLimited
	}

	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(req.OrderID) == "" || req.StreamID == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.streams.GetOwnerID(ctx, req.StreamID); err != nil {
		return nil, translatePaymentErr(err)
	}

	payment := &domain.Payment{
		ID:       req.OrderID,
		Amount:   req.Amount,
		Message:  req.Message,
		UserID:   userID,
		StreamID: req.StreamID,
		Status:   domain.PaymentPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, translatePaymentErr(err)
	}

	audit.LogWithDetail(ctx, audit.ActionPaymentCreate, userID, payment.ID,
		strconv.FormatFloat(payment.Amount, 'f', 2, 64), "payment order created")
	return payment, nil
}

// GetPayment returns a payment with its sender and stream. Only the sender
// and the receiving streamer may read it.
func (s *paymentServiceImpl) GetPayment(ctx context.Context, actorID, id string) (*domain.Payment, error) {
	p, err := readThrough(ctx, &s.sf, flightKey("payment", id),
		func(ctx context.Context) cache.Result[domain.Payment] { return s.cache.GetPayment(ctx, id) },
		func(ctx context.Context) (*domain.Payment, error) {
			p, err := s.repo.GetByID(ctx, id)
			return p, translatePaymentErr(err)
		},
		s.cache.SetPayment,
	)
	if err != nil {
		return nil, err
	}
	if p.UserID == actorID {
		return p, nil
	}

	streamerID := ""
	if p.Stream != nil && p.Stream.Streamer != nil {
		streamerID = p.Stream.Streamer.ID
	} else if streamerID, err = s.streams.GetOwnerID(ctx, p.StreamID); err != nil {
		return nil, translatePaymentErr(err)
	}
	if streamerID != actorID {
		return nil, ErrNotPaymentParty
	}
	return p, nil
}

// UpdatePaymentStatus settles a payment sent by actorID. Only a gateway
// signature over the order moves it to SUCCESS, which bumps the stream's
// donation counter and publishes a superchat. Settled payments are final.
func (s *paymentServiceImpl) UpdatePaymentStatus(ctx context.Context, actorID, id string, req domain.UpdatePaymentStatusRequest) (*domain.Payment, error) {
	status := req.Status
	ctx, span := tracer.Start(ctx, "UpdatePaymentStatus", trace.WithAttributes(
		attribute.String("payment.id", id),
		attribute.String("payment.status", string(status)),
	))
	defer span.End()
	l := log.Ctx(ctx)

	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translatePaymentErr(err)
	}
	if current.UserID != actorID {
		return nil, ErrNotPaymentOwner
	}
	if current.Status == domain.PaymentSuccess {
		if status == domain.PaymentSuccess {
			return current, nil
		}
		return nil, ErrPaymentSettled
	}
	if status == domain.PaymentSuccess && !s.verifier.Verify(id, req.GatewayPaymentID, req.Signature) {
		l.Warn().Str(log.FieldPaymentID, id).Str(log.FieldUserID, actorID).Msg("settlement signature rejected")
		return nil, ErrUnverified
	}

	updated, previous, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, translatePaymentErr(err)
	}

	s.cache.InvalidatePaymentRelated(ctx, updated.ID, updated.UserID, updated.StreamID)
	s.cache.InvalidateStreamStats(ctx, updated.StreamID)

	if status == domain.PaymentSuccess && previous != domain.PaymentSuccess {
		total, ok := s.cache.IncrementDonationTotal(ctx, updated.StreamID, updated.Amount)
		if !ok {
			l.Warn().Str(log.FieldPaymentID, id).Str(log.FieldStreamID, updated.StreamID).
				Msg("donation counter not updated")
		}
		s.publishSuperchat(ctx, updated, total)
	}

	audit.LogWithDetail(ctx, audit.ActionPaymentStatus, actorID, id,
		fmt.Sprintf("%s->%s", previous, status), "payment status updated")
	return updated, nil
}

func (s *paymentServiceImpl) publishSuperchat(ctx context.Context, p *domain.Payment, total float64) {
	l := log.Ctx(ctx)

	payload := pubsub.SuperchatPayload{
		PaymentID: p.ID,
		StreamID:  p.StreamID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		Total:     total,
	}
	if p.User != nil {
		payload.Username = p.User.Name
	}
	if p.Message != nil {
		payload.Message = *p.Message
	}

	event, err := pubsub.NewEvent(pubsub.EventSuperchat, p.StreamID, payload)
	if err == nil {
		err = s.publisher.Publish(ctx, pubsub.SuperchatChannel(p.StreamID), event)
	}
	if err != nil {
		l.Warn().Err(err).Str(log.FieldPaymentID, p.ID).Msg("failed to publish superchat")
	}
}

// pageQuery is a normalized history request.
type pageQuery struct {
	page   int
	limit  int
	status domain.PaymentStatus // empty for all
}

func normalizePageQuery(req domain.ListPaymentsRequest) (pageQuery, error) {
	q := pageQuery{page: req.Page, limit: req.Limit}
	if q.page < 1 {
		q.page = 1
	}
	if q.page > maxPage {
		return q, ErrInvalidInput
	}
	if q.limit < 1 {
		q.limit = defaultPageLimit
	}
	if q.limit > maxPageLimit {
		q.limit = maxPageLimit
	}

	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status != "" && status != strings.ToUpper(cache.StatusAll) {
		q.status = domain.PaymentStatus(status)
		if !q.status.Valid() {
			return q, ErrInvalidStatus
		}
	}
	return q, nil
}

func (s *paymentServiceImpl) loadPage(ctx context.Context, filter repository.PaymentFilter, q pageQuery) (*domain.PaymentPage, error) {
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	offset := (q.page - 1) * q.limit
	payments := []domain.Payment{}
	if offset < total {
		payments, err = s.repo.List(ctx, filter, offset, q.limit)
		if err != nil {
			return nil, err
		}
	}
	return &domain.PaymentPage{
		Payments:   payments,
		Pagination: domain.NewPagination(q.page, q.limit, total),
	}, nil
}

// ListSentPayments returns one page of the payments userID sent.
func (s *paymentServiceImpl) ListSentPayments(ctx context.Context, userID string, req domain.ListPaymentsRequest) (*domain.PaymentPage, error) {
	q, err := normalizePageQuery(req)
	if err != nil {
		return nil, err
	}
	status := string(q.status)

	return readThrough(ctx, &s.sf, flightKey("sent", userID, status, strconv.Itoa(q.page), strconv.Itoa(q.limit)),
		func(ctx context.Context) cache.Result[domain.PaymentPage] {
			return s.cache.GetSentPage(ctx, userID, status, q.page)
		},
		func(ctx context.Context) (*domain.PaymentPage, error) {
			return s.loadPage(ctx, repository.PaymentFilter{SenderID: userID, Status: q.status}, q)
		},
		func(ctx context.Context, p *domain.PaymentPage) {
			s.cache.SetSentPage(ctx, userID, status, q.page, p)
		},
	)
}

// ListReceivedPayments returns one page of the payments streamerID's
// streams received.
func (s *paymentServiceImpl) ListReceivedPayments(ctx context.Context, streamerID string, req domain.ListPaymentsRequest) (*domain.PaymentPage, error) {
	q, err := normalizePageQuery(req)
	if err != nil {
		return nil, err
	}
	status := string(q.status)

	return readThrough(ctx, &s.sf, flightKey("received", streamerID, status, strconv.Itoa(q.page), strconv.Itoa(q.limit)),
		func(ctx context.Context) cache.Result[domain.PaymentPage] {
			return s.cache.GetReceivedPage(ctx, streamerID, status, q.page)
		},
		func(ctx context.Context) (*domain.PaymentPage, error) {
			return s.loadPage(ctx, repository.PaymentFilter{StreamerID: streamerID, Status: q.status}, q)
		},
		func(ctx context.Context, p *domain.PaymentPage) {
			s.cache.SetReceivedPage(ctx, streamerID, status, q.page, p)
		},
	)
}

// GetStreamStats returns the successful payment aggregate of a stream.
func (s *paymentServiceImpl) GetStreamStats(ctx context.Context, streamID string) (*domain.StreamPaymentStats, error) {
	return readThrough(ctx, &s.sf, flightKey("stats", streamID),
		func(ctx context.Context) cache.Result[domain.StreamPaymentStats] {
			return s.cache.GetStreamStats(ctx, streamID)
		},
		func(ctx context.Context) (*domain.StreamPaymentStats, error) {
			st, err := s.repo.StreamStats(ctx, streamID)
			return st, translatePaymentErr(err)
		},
		s.cache.SetStreamStats,
	)
}
