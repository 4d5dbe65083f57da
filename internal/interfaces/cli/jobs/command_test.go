package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/infrastructure/cache"
	"github.com/orris-inc/billing/internal/interfaces/cli/bootstrap"
	sharedConfig "github.com/orris-inc/billing/internal/shared/config"
	"github.com/orris-inc/billing/internal/shared/constants"
	"github.com/orris-inc/billing/internal/shared/logger"
)

func TestNewCommands(t *testing.T) {
	cmds := NewCommands(&bootstrap.Options{})

	byName := make(map[string]bool)
	for _, c := range cmds {
		byName[c.Name()] = true
		assert.NotNil(t, c.Flags().Lookup("limit"), c.Name())
		assert.NotNil(t, c.Flags().Lookup("dry-run"), c.Name())
	}
	assert.Equal(t, map[string]bool{"renew": true, "warn": true, "suspend": true, "expire": true}, byName)

	assert.NotNil(t, cmds[0].Flags().Lookup("subscription"))
	assert.NotNil(t, cmds[1].Flags().Lookup("days-before"))
}

func TestLimitOrDefault(t *testing.T) {
	billing := sharedConfig.BillingConfig{BatchLimit: 100}

	assert.Equal(t, 100, limitOrDefault(0, billing))
	assert.Equal(t, 100, limitOrDefault(-5, billing))
	assert.Equal(t, 7, limitOrDefault(7, billing))
}

func TestPrintReport(t *testing.T) {
	started := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	report := &usecases.BatchReport{
		Job:        "run_due_renewals",
		DryRun:     true,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Selected:   1,
		Counts:     map[string]int{usecases.OutcomeWouldProcess: 1},
		Items: []usecases.BatchItem{
			{SubscriptionID: 42, SubscriptionSID: "sub_abc", Outcome: usecases.OutcomeWouldProcess},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, report))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run_due_renewals", decoded["job"])
	assert.Equal(t, true, decoded["dry_run"])
	assert.Contains(t, buf.String(), "\n  \"selected\": 1")

	items := decoded["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "sub_abc", items[0].(map[string]any)["subscription_sid"])
}

func setupLease(t *testing.T) (*cache.JobLease, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return cache.NewJobLease(client), mr
}

func TestWithLease(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNopLogger()
	key := constants.RedisKeyJobLeasePrefix + constants.JobRunDueRenewals

	t.Run("live run holds the lease and releases it", func(t *testing.T) {
		lease, mr := setupLease(t)

		ran := false
		err := withLease(ctx, lease, time.Minute, constants.JobRunDueRenewals, false, log, func(ctx context.Context) error {
			ran = true
			assert.True(t, mr.Exists(key), "lease held while the batch runs")
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
		assert.False(t, mr.Exists(key))
	})

	t.Run("live run refuses while the scheduler holds the lease", func(t *testing.T) {
		lease, mr := setupLease(t)
		held, err := lease.Acquire(ctx, constants.JobRunDueRenewals, time.Minute)
		require.NoError(t, err)

		ran := false
		err = withLease(ctx, lease, time.Minute, constants.JobRunDueRenewals, false, log, func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.ErrorIs(t, err, cache.ErrLeaseHeld)
		assert.Contains(t, err.Error(), "already running")
		assert.False(t, ran, "batch must not run concurrently")
		assert.True(t, mr.Exists(key), "the other holder keeps its lease")

		require.NoError(t, held.Release(ctx))
	})

	t.Run("dry run does not need the lease", func(t *testing.T) {
		lease, mr := setupLease(t)
		_, err := lease.Acquire(ctx, constants.JobRunDueRenewals, time.Minute)
		require.NoError(t, err)

		ran := false
		err = withLease(ctx, lease, time.Minute, constants.JobRunDueRenewals, true, log, func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
		assert.True(t, mr.Exists(key))
	})

	t.Run("batch error is returned and the lease released", func(t *testing.T) {
		lease, mr := setupLease(t)

		err := withLease(ctx, lease, time.Minute, constants.JobSuspendExpiredGracePeriods, false, log, func(ctx context.Context) error {
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)
		assert.False(t, mr.Exists(constants.RedisKeyJobLeasePrefix+constants.JobSuspendExpiredGracePeriods))
	})
}
