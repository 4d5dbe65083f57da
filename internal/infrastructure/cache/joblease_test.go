package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestJobLease_MutualExclusion(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	leases := NewJobLease(client)

	lease, err := leases.Acquire(ctx, "run-due-renewals", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("billing:lease:run-due-renewals"))

	_, err = leases.Acquire(ctx, "run-due-renewals", time.Minute)
	assert.ErrorIs(t, err, ErrLeaseHeld)

	// Different jobs do not block each other.
	other, err := leases.Acquire(ctx, "expire-subscriptions", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("billing:lease:run-due-renewals"))

	again, err := leases.Acquire(ctx, "run-due-renewals", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestJobLease_ExpiredLeaseDoesNotReleaseSuccessor(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	leases := NewJobLease(client)

	stale, err := leases.Acquire(ctx, "send-suspension-warnings", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	successor, err := leases.Acquire(ctx, "send-suspension-warnings", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("billing:lease:send-suspension-warnings"))

	require.NoError(t, successor.Release(ctx))
	assert.False(t, mr.Exists("billing:lease:send-suspension-warnings"))
}

func TestJobLease_RedisUnavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	_, err := NewJobLease(client).Acquire(context.Background(), "run-due-renewals", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLeaseHeld)
}
