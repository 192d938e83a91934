package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
)

func alice() domain.User {
	return domain.User{
		ID: "u1", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser,
		Streams: []domain.StreamSummary{{ID: "s1", Title: "live", IsLive: true}},
	}
}

func TestUpdateUserRefreshesBothSlots(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	users := newFakeUserRepo(alice())
	svc := NewUserService(users, c)

	_, err := svc.GetUser(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.GetUserByEmail(ctx, "Alice@Example.com ")
	require.NoError(t, err)
	require.True(t, mr.Exists("user:email:alice@example.com"))

	name := "Alicia"
	updated, err := svc.UpdateUser(ctx, "u1", "u1", domain.UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.Name)

	assert.False(t, mr.Exists("user:email:alice@example.com"))
	cached := c.GetUser(ctx, "u1")
	require.True(t, cached.Ok())
	assert.Equal(t, "Alicia", cached.Value.Name)

	byEmail, err := svc.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", byEmail.Name)
}

func TestUpdateUserRoleChangeDropsPages(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	svc := NewUserService(newFakeUserRepo(alice()), c)

	page := &domain.PaymentPage{Payments: []domain.Payment{}}
	c.SetSentPage(ctx, "u1", "", 1, page)
	c.SetReceivedPage(ctx, "u1", "SUCCESS", 1, page)

	name := "Alicia"
	_, err := svc.UpdateUser(ctx, "u1", "u1", domain.UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.True(t, mr.Exists("user_sent_payments:u1:all:1"), "profile edits keep history pages")

	role := domain.RoleStreamer
	updated, err := svc.UpdateUser(ctx, "u1", "u1", domain.UserUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStreamer, updated.Role)
	assert.False(t, mr.Exists("user_sent_payments:u1:all:1"))
	assert.False(t, mr.Exists("streamer_received_payments:u1:SUCCESS:1"))
}

func TestUpdateUserRejects(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	svc := NewUserService(newFakeUserRepo(alice()), c)

	_, err := svc.GetUser(ctx, "u1")
	require.NoError(t, err)

	name := "Mallory"
	_, err = svc.UpdateUser(ctx, "u2", "u1", domain.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotProfileOwner)

	_, err = svc.UpdateUser(ctx, "u1", "u1", domain.UserUpdate{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	admin := domain.RoleAdmin
	_, err = svc.UpdateUser(ctx, "u1", "u1", domain.UserUpdate{Role: &admin})
	assert.ErrorIs(t, err, ErrRoleNotAllowed)

	_, err = svc.UpdateUser(ctx, "ghost", "ghost", domain.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)

	// Failed updates leave the cached profile alone.
	assert.True(t, mr.Exists("user:u1"))
}

func TestDeleteUserFansOut(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	users := newFakeUserRepo(alice())
	svc := NewUserService(users, c)

	_, err := svc.GetUser(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	page := &domain.PaymentPage{Payments: []domain.Payment{}}
	c.SetSentPage(ctx, "u1", "", 1, page)
	c.SetReceivedPage(ctx, "u1", "", 1, page)
	c.SetStream(ctx, &domain.Stream{ID: "s1", StreamerID: "u1"})
	c.SetStreamStats(ctx, &domain.StreamPaymentStats{StreamID: "s1"})
	c.SetLiveStreams(ctx, []domain.Stream{{ID: "s1"}})
	c.SetStream(ctx, &domain.Stream{ID: "s2", StreamerID: "u9"})

	assert.ErrorIs(t, svc.DeleteUser(ctx, "u2", "u1"), ErrNotProfileOwner)
	require.NoError(t, svc.DeleteUser(ctx, "u1", "u1"))

	assert.ElementsMatch(t, []string{"stream:s2"}, mr.Keys())

	_, err = svc.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, "u1", "u1"), ErrUserNotFound)
}

func TestFindOrCreate(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	svc := NewUserService(newFakeUserRepo(alice()), c)

	u, created, err := svc.FindOrCreate(ctx, "", " ALICE@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "u1", u.ID)

	u, created, err = svc.FindOrCreate(ctx, "", "bob@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "bob", u.Name)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.True(t, mr.Exists("user:"+u.ID))
	assert.True(t, mr.Exists("user:email:bob@example.com"))

	_, _, err = svc.FindOrCreate(ctx, "x", "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
