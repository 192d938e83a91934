package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ManikLakhanpal/Tube-Pay/internal/audit"
	"github.com/ManikLakhanpal/Tube-Pay/internal/cache"
	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/internal/repository"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
)

// userServiceImpl implements UserService.
type userServiceImpl struct {
	repo  repository.UserRepository
	cache cache.Cache
	sf    singleflight.Group
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, c cache.Cache) UserService {
	return &userServiceImpl{
		repo:  repo,
		cache: c,
	}
}

func translateUserErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}

// GetUser returns a user profile with owned stream summaries.
func (s *userServiceImpl) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return readThrough(ctx, &s.sf, flightKey("user", id),
		func(ctx context.Context) cache.Result[domain.User] { return s.cache.GetUser(ctx, id) },
		func(ctx context.Context) (*domain.User, error) {
			u, err := s.repo.GetByID(ctx, id)
			return u, translateUserErr(err)
		},
		s.cache.SetUser,
	)
}

// GetUserByEmail returns a user profile looked up by email.
func (s *userServiceImpl) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = normalizeEmail(email)
	return readThrough(ctx, &s.sf, flightKey("user-email", email),
		func(ctx context.Context) cache.Result[domain.User] { return s.cache.GetUserByEmail(ctx, email) },
		func(ctx context.Context) (*domain.User, error) {
			u, err := s.repo.GetByEmail(ctx, email)
			return u, translateUserErr(err)
		},
		s.cache.SetUserByEmail,
	)
}

// FindOrCreate returns the user registered under email, creating a USER
// account on first login.
func (s *userServiceImpl) FindOrCreate(ctx context.Context, name, email string) (*domain.User, bool, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, false, ErrInvalidInput
	}

	u, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	if name == "" {
		name = email[:strings.IndexByte(email+"@", '@')]
	}
	u = &domain.User{Name: name, Email: email, Role: domain.RoleUser}
	if err := s.repo.Create(ctx, u); err != nil {
		if !errors.Is(err, repository.ErrEmailTaken) {
			return nil, false, err
		}
		// Lost a race with a concurrent first login.
		existing, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, translateUserErr(err)
		}
		return existing, false, nil
	}

	s.cache.SetUser(ctx, u)
	s.cache.SetUserByEmail(ctx, u)
	audit.Log(ctx, audit.ActionUserLogin, u.ID, u.ID, "user registered")
	return u, true, nil
}

// UpdateUser changes a user's own profile.
func (s *userServiceImpl) UpdateUser(ctx context.Context, actorID, id string, update domain.UserUpdate) (*domain.User, error) {
	l := log.Ctx(ctx)

	if actorID != id {
		return nil, ErrNotProfileOwner
	}
	if update.Empty() {
		return nil, ErrInvalidInput
	}

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateUserErr(err)
	}

	after, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrRoleNotAllowed) {
			return nil, ErrRoleNotAllowed
		}
		return nil, translateUserErr(err)
	}

	s.cache.InvalidateUser(ctx, id)
	s.cache.InvalidateUserByEmail(ctx, before.Email)
	if after.Email != before.Email {
		s.cache.InvalidateUserByEmail(ctx, after.Email)
	}
	s.cache.SetUser(ctx, after)

	if after.Role != before.Role {
		s.cache.InvalidateUserPages(ctx, id)
		audit.LogWithDetail(ctx, audit.ActionUserUpdate, actorID, id,
			string(before.Role)+"->"+string(after.Role), "user role changed")
	} else {
		audit.Log(ctx, audit.ActionUserUpdate, actorID, id, "user profile updated")
	}

	l.Debug().Str(log.FieldUserID, id).Msg("user cache refreshed after update")
	return after, nil
}

// DeleteUser removes a user's own account with everything it owns.
func (s *userServiceImpl) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID != id {
		return ErrNotProfileOwner
	}

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return translateUserErr(err)
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return translateUserErr(err)
	}

	s.cache.InvalidateUser(ctx, id)
	s.cache.InvalidateUserByEmail(ctx, before.Email)
	s.cache.InvalidateUserPages(ctx, id)
	for _, st := range before.Streams {
		s.cache.InvalidateStream(ctx, st.ID)
		s.cache.InvalidateStreamStats(ctx, st.ID)
	}
	if len(before.Streams) > 0 {
		s.cache.InvalidateLiveStreams(ctx)
	}
	s.cache.InvalidateRemovedPayments(ctx, removed)

	audit.Log(ctx, audit.ActionUserDelete, actorID, id, "user deleted")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
