package service

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"github.com/ManikLakhanpal/Tube-Pay/internal/audit"
	"github.com/ManikLakhanpal/Tube-Pay/internal/cache"
	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/internal/repository"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
)

// streamServiceImpl implements StreamService.
type streamServiceImpl struct {
	repo  repository.StreamRepository
	cache cache.Cache
	sf    singleflight.Group
}

// NewStreamService creates a new stream service.
func NewStreamService(repo repository.StreamRepository, c cache.Cache) StreamService {
	return &streamServiceImpl{
		repo:  repo,
		cache: c,
	}
}

func translateStreamErr(err error) error {
	if errors.Is(err, repository.ErrStreamNotFound) {
		return ErrStreamNotFound
	}
	return err
}

// GetStream returns a stream with its streamer and successful payments.
func (s *streamServiceImpl) GetStream(ctx context.Context, id string) (*domain.Stream, error) {
	return readThrough(ctx, &s.sf, flightKey("stream", id),
		func(ctx context.Context) cache.Result[domain.Stream] { return s.cache.GetStream(ctx, id) },
		func(ctx context.Context) (*domain.Stream, error) {
			st, err := s.repo.GetByID(ctx, id)
			return st, translateStreamErr(err)
		},
		s.cache.SetStream,
	)
}

// ListLiveStreams returns every live stream, newest first.
func (s *streamServiceImpl) ListLiveStreams(ctx context.Context) ([]domain.Stream, error) {
	streams, err := readThrough(ctx, &s.sf, flightKey("live"),
		s.cache.GetLiveStreams,
		func(ctx context.Context) (*[]domain.Stream, error) {
			list, err := s.repo.ListLive(ctx)
			if err != nil {
				return nil, err
			}
			return &list, nil
		},
		func(ctx context.Context, list *[]domain.Stream) { s.cache.SetLiveStreams(ctx, *list) },
	)
	if err != nil {
		return nil, err
	}
	return *streams, nil
}

// CreateStream starts a new live stream owned by streamerID.
func (s *streamServiceImpl) CreateStream(ctx context.Context, streamerID string, req *domain.CreateStreamRequest) (*domain.Stream, error) {
	l := log.Ctx(ctx)

	if req.Title == "" {
		return nil, ErrInvalidInput
	}

	stream := &domain.Stream{
		Title:       req.Title,
		Description: req.Description,
		StreamLink:  req.StreamLink,
		StreamerID:  streamerID,
	}
	if err := s.repo.Create(ctx, stream); err != nil {
		return nil, err
	}

	s.cache.InvalidateLiveStreams(ctx)

	// Cache the detail in the same shape a read would produce.
	fresh, err := s.repo.GetByID(ctx, stream.ID)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldStreamID, stream.ID).Msg("failed to reload created stream")
		s.invalidateStreamer(ctx, streamerID, "")
		return stream, nil
	}
	s.cache.SetStream(ctx, fresh)
	s.invalidateStreamer(ctx, streamerID, streamerEmail(fresh))

	audit.Log(ctx, audit.ActionStreamCreate, streamerID, fresh.ID, "stream created")
	return fresh, nil
}

// UpdateStream changes a stream owned by actorID.
func (s *streamServiceImpl) UpdateStream(ctx context.Context, actorID, id string, update domain.StreamUpdate) (*domain.Stream, error) {
	if update.Empty() {
		return nil, ErrInvalidInput
	}

	ownerID, err := s.repo.GetOwnerID(ctx, id)
	if err != nil {
		return nil, translateStreamErr(err)
	}
	if ownerID != actorID {
		return nil, ErrNotStreamOwner
	}

	fresh, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, translateStreamErr(err)
	}

	s.cache.InvalidateLiveStreams(ctx)
	s.cache.InvalidateStream(ctx, id)
	s.invalidateStreamer(ctx, ownerID, streamerEmail(fresh))
	s.cache.SetStream(ctx, fresh)

	audit.Log(ctx, audit.ActionStreamUpdate, actorID, id, "stream updated")
	return fresh, nil
}

// DeleteStream removes a stream owned by actorID together with its
// payments.
func (s *streamServiceImpl) DeleteStream(ctx context.Context, actorID, id string) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return translateStreamErr(err)
	}
	if current.StreamerID != actorID {
		return ErrNotStreamOwner
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return translateStreamErr(err)
	}

	s.cache.InvalidateStream(ctx, id)
	s.cache.InvalidateStreamStats(ctx, id)
	s.cache.InvalidateLiveStreams(ctx)
	s.cache.InvalidateRemovedPayments(ctx, removed)
	s.invalidateStreamer(ctx, actorID, streamerEmail(current))

	audit.Log(ctx, audit.ActionStreamDelete, actorID, id, "stream deleted")
	return nil
}

// GetDonationTotal returns the stream's running donation total. A stream
// without a counter reports 0.
func (s *streamServiceImpl) GetDonationTotal(ctx context.Context, id string) *domain.DonationTotal {
	return &domain.DonationTotal{
		StreamID: id,
		Total:    s.cache.GetDonationTotal(ctx, id),
	}
}

// invalidateStreamer drops the owner's profile, whose stream summaries
// just changed.
func (s *streamServiceImpl) invalidateStreamer(ctx context.Context, streamerID, email string) {
	s.cache.InvalidateUser(ctx, streamerID)
	if email != "" {
		s.cache.InvalidateUserByEmail(ctx, email)
	}
}

func streamerEmail(st *domain.Stream) string {
	if st.Streamer == nil {
		return ""
	}
	return st.Streamer.Email
}
