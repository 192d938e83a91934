package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
)

func TestCreateStreamInvalidatesLiveList(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	streams := newFakeStreamRepo()
	svc := NewStreamService(streams, c)

	live, err := svc.ListLiveStreams(ctx)
	require.NoError(t, err)
	require.Empty(t, live)
	c.SetUser(ctx, &domain.User{ID: "u2", Email: "u2@example.com"})
	c.SetUserByEmail(ctx, &domain.User{ID: "u2", Email: "u2@example.com"})

	created, err := svc.CreateStream(ctx, "u2", &domain.CreateStreamRequest{Title: "first"})
	require.NoError(t, err)

	assert.False(t, mr.Exists("live_streams"))
	assert.False(t, mr.Exists("user:u2"))
	assert.False(t, mr.Exists("user:email:u2@example.com"))
	assert.True(t, mr.Exists("stream:"+created.ID))

	live, err = svc.ListLiveStreams(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "first", live[0].Title)

	_, err = svc.CreateStream(ctx, "u2", &domain.CreateStreamRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStreamRefreshesDetail(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	streams := newFakeStreamRepo(domain.Stream{ID: "s1", Title: "live", IsLive: true, StreamerID: "u2"})
	svc := NewStreamService(streams, c)

	_, err := svc.GetStream(ctx, "s1")
	require.NoError(t, err)
	_, err = svc.ListLiveStreams(ctx)
	require.NoError(t, err)

	title := "still live"
	_, err = svc.UpdateStream(ctx, "u9", "s1", domain.StreamUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotStreamOwner)
	_, err = svc.UpdateStream(ctx, "u2", "s1", domain.StreamUpdate{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.UpdateStream(ctx, "u2", "nope", domain.StreamUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrStreamNotFound)
	require.True(t, mr.Exists("live_streams"))

	offline := false
	_, err = svc.UpdateStream(ctx, "u2", "s1", domain.StreamUpdate{Title: &title, IsLive: &offline})
	require.NoError(t, err)
	assert.False(t, mr.Exists("live_streams"))

	reads := streams.reads.Load()
	got, err := svc.GetStream(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "still live", got.Title)
	assert.False(t, got.IsLive)
	assert.Equal(t, reads, streams.reads.Load(), "updated detail is written back")

	live, err := svc.ListLiveStreams(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestDeleteStream(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	streams := newFakeStreamRepo(domain.Stream{
		ID: "s1", Title: "live", IsLive: true, StreamerID: "u2",
		Streamer: &domain.StreamerSummary{ID: "u2", Email: "u2@example.com"},
	})
	svc := NewStreamService(streams, c)

	_, err := svc.GetStream(ctx, "s1")
	require.NoError(t, err)
	_, err = svc.ListLiveStreams(ctx)
	require.NoError(t, err)
	c.SetStreamStats(ctx, &domain.StreamPaymentStats{StreamID: "s1"})
	c.SetUserByEmail(ctx, &domain.User{ID: "u2", Email: "u2@example.com"})

	assert.ErrorIs(t, svc.DeleteStream(ctx, "u9", "s1"), ErrNotStreamOwner)
	require.NoError(t, svc.DeleteStream(ctx, "u2", "s1"))

	assert.Empty(t, mr.Keys())
	_, err = svc.GetStream(ctx, "s1")
	assert.ErrorIs(t, err, ErrStreamNotFound)
	assert.ErrorIs(t, svc.DeleteStream(ctx, "u2", "s1"), ErrStreamNotFound)
}

func TestDonationTotalDefaultsToZero(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	svc := NewStreamService(newFakeStreamRepo(), c)

	total := svc.GetDonationTotal(ctx, "s1")
	assert.Equal(t, "s1", total.StreamID)
	assert.Zero(t, total.Total)

	_, ok := c.IncrementDonationTotal(ctx, "s1", 42)
	require.True(t, ok)
	assert.InDelta(t, 42, svc.GetDonationTotal(ctx, "s1").Total, 1e-9)
}
