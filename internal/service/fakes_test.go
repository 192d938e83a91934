package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ManikLakhanpal/Tube-Pay/internal/cache"
	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/internal/repository"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/gateway"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/pubsub"
)

const gatewaySecret = "gateway-secret"

func newTestVerifier(t *testing.T) SettlementVerifier {
	t.Helper()
	v, err := gateway.NewVerifier(gatewaySecret)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// signed builds a status change carrying the gateway's proof for id.
func signed(id string, status domain.PaymentStatus) domain.UpdatePaymentStatusRequest {
	gwID := "gw_" + id
	return domain.UpdatePaymentStatusRequest{
		Status:           status,
		GatewayPaymentID: gwID,
		Signature:        gateway.Signature(gatewaySecret, id, gwID),
	}
}

func newTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewRedisCache(client, cache.Options{OpTimeout: 200 * time.Millisecond}), mr
}

// fakeUserRepo is an in-memory UserRepository counting reads.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
	reads atomic.Int64
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = "U" + u.Email
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.reads.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.reads.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	if update.Role != nil && !update.Role.SelfAssignable() {
		return nil, repository.ErrRoleNotAllowed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.AvatarURL != nil {
		u.AvatarURL = update.AvatarURL
	}
	if update.Role != nil {
		u.Role = *update.Role
	}
	r.users[id] = u
	return &u, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) ([]domain.PaymentRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return nil, repository.ErrUserNotFound
	}
	delete(r.users, id)
	return nil, nil
}

// fakeStreamRepo is an in-memory StreamRepository counting reads.
type fakeStreamRepo struct {
	mu      sync.Mutex
	streams map[string]domain.Stream
	reads   atomic.Int64
	lists   atomic.Int64
	seq     int
}

func newFakeStreamRepo(streams ...domain.Stream) *fakeStreamRepo {
	r := &fakeStreamRepo{streams: make(map[string]domain.Stream)}
	for _, s := range streams {
		r.streams[s.ID] = s
	}
	return r
}

func (r *fakeStreamRepo) Create(_ context.Context, s *domain.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.ID = "S" + string(rune('0'+r.seq))
	s.IsLive = true
	s.Streamer = &domain.StreamerSummary{ID: s.StreamerID, Email: s.StreamerID + "@example.com"}
	r.streams[s.ID] = *s
	return nil
}

func (r *fakeStreamRepo) GetByID(_ context.Context, id string) (*domain.Stream, error) {
	r.reads.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return nil, repository.ErrStreamNotFound
	}
	return &s, nil
}

func (r *fakeStreamRepo) GetOwnerID(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return "", repository.ErrStreamNotFound
	}
	return s.StreamerID, nil
}

func (r *fakeStreamRepo) ListLive(_ context.Context) ([]domain.Stream, error) {
	r.lists.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Stream{}
	for _, s := range r.streams {
		if s.IsLive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeStreamRepo) Update(_ context.Context, id string, update domain.StreamUpdate) (*domain.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return nil, repository.ErrStreamNotFound
	}
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.IsLive != nil {
		s.IsLive = *update.IsLive
	}
	r.streams[id] = s
	return &s, nil
}

func (r *fakeStreamRepo) Delete(_ context.Context, id string) ([]domain.PaymentRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.streams[id]; !ok {
		return nil, repository.ErrStreamNotFound
	}
	delete(r.streams, id)
	return nil, nil
}

// fakePaymentRepo is an in-memory PaymentRepository counting reads.
type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]domain.Payment
	owners   map[string]string // stream id -> streamer id
	reads    atomic.Int64
	lists    atomic.Int64
	stats    atomic.Int64
}

func newFakePaymentRepo(owners map[string]string) *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]domain.Payment), owners: owners}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; ok {
		return repository.ErrPaymentExists
	}
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.payments[p.ID] = *p
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	r.reads.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *fakePaymentRepo) UpdateStatus(_ context.Context, id string, status domain.PaymentStatus) (*domain.Payment, domain.PaymentStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, "", repository.ErrPaymentNotFound
	}
	prev := p.Status
	if prev == domain.PaymentSuccess && status != domain.PaymentSuccess {
		return nil, "", repository.ErrPaymentSettled
	}
	p.Status = status
	r.payments[id] = p
	return &p, prev, nil
}

func (r *fakePaymentRepo) match(f repository.PaymentFilter) []domain.Payment {
	out := []domain.Payment{}
	for _, p := range r.payments {
		if f.SenderID != "" && p.UserID != f.SenderID {
			continue
		}
		if f.StreamerID != "" && r.owners[p.StreamID] != f.StreamerID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakePaymentRepo) Count(_ context.Context, f repository.PaymentFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.match(f)), nil
}

func (r *fakePaymentRepo) List(_ context.Context, f repository.PaymentFilter, offset, limit int) ([]domain.Payment, error) {
	r.lists.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.match(f)
	if offset >= len(all) {
		return []domain.Payment{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakePaymentRepo) StreamStats(_ context.Context, streamID string) (*domain.StreamPaymentStats, error) {
	r.stats.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[streamID]; !ok {
		return nil, repository.ErrStreamNotFound
	}
	st := &domain.StreamPaymentStats{StreamID: streamID}
	for _, p := range r.payments {
		if p.StreamID == streamID && p.Status == domain.PaymentSuccess {
			st.SuccessfulPayments++
			st.TotalAmount += p.Amount
		}
	}
	return st, nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
	chans  []string
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.chans = append(p.chans, channel)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
