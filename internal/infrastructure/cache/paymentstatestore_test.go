package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paysweep/internal/application/payment/gateway"
)

func newTestStore(t *testing.T) (*PaymentStateStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewPaymentStateStore(client), mr
}

func TestMarkCheckedRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.LastCheckedAt(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.MarkChecked(ctx, 42))

	at, found, err := store.LastCheckedAt(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.WithinDuration(t, time.Now().UTC(), at, 5*time.Second)
}

func TestMarkCheckedStateExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkChecked(ctx, 42))
	mr.FastForward(checkStateTTL + time.Second)

	_, found, err := store.LastCheckedAt(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIncrFailCount(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		count, err := store.IncrFailCount(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	// counters are scoped per order
	count, err := store.IncrFailCount(ctx, 43)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.ResetFailCount(ctx, 42))
	count, err = store.IncrFailCount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// the TTL is refreshed on every failure
	mr.FastForward(checkStateTTL - time.Minute)
	count, err = store.IncrFailCount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	mr.FastForward(checkStateTTL + time.Second)
	count, err = store.IncrFailCount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTrackIDCache(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	got, err := store.CachedTrackID(ctx, "T1001")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.CacheTrackID(ctx, "T1001", "900123"))

	got, err = store.CachedTrackID(ctx, "T1001")
	require.NoError(t, err)
	assert.Equal(t, "900123", got)

	require.NoError(t, store.ForgetTrackID(ctx, "T1001"))
	got, err = store.CachedTrackID(ctx, "T1001")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.CacheTrackID(ctx, "T1002", "900124"))
	mr.FastForward(trackTTL + time.Second)
	got, err = store.CachedTrackID(ctx, "T1002")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProcessedMarker(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.ProcessedResult(ctx, "T1001", "900123")
	require.NoError(t, err)
	assert.False(t, found)

	paidAt := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, store.MarkProcessed(ctx, "T1001", "900123", &gateway.VerifiedPayment{
		TrackID:    "900123",
		Amount:     5000,
		CardNumber: "603799******7890",
		PaidAt:     &paidAt,
	}))

	result, found, err := store.ProcessedResult(ctx, "T1001", "900123")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "900123", result.TrackID)
	assert.Equal(t, int64(5000), result.Amount)
	require.NotNil(t, result.PaidAt)
	assert.True(t, paidAt.Equal(*result.PaidAt))

	// a different track id for the same trade number is not processed
	_, found, err = store.ProcessedResult(ctx, "T1001", "900999")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSweepHeartbeats(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.LastRun(ctx, "fast")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetLastRun(ctx, "fast"))
	require.NoError(t, store.SetLastSuccess(ctx, "fast"))

	at, found, err := store.LastRun(ctx, "fast")
	require.NoError(t, err)
	require.True(t, found)
	assert.WithinDuration(t, time.Now().UTC(), at, 5*time.Second)

	at, found, err = store.LastSuccess(ctx, "fast")
	require.NoError(t, err)
	require.True(t, found)
	assert.WithinDuration(t, time.Now().UTC(), at, 5*time.Second)

	// variants do not share heartbeats
	_, found, err = store.LastRun(ctx, "deep")
	require.NoError(t, err)
	assert.False(t, found)
}
