package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/billing/internal/infrastructure/cache"
	"github.com/orris-inc/billing/internal/shared/constants"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type fakeRecorder struct {
	mu   sync.Mutex
	runs map[string][]error
}

func (r *fakeRecorder) JobCompleted(job string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = make(map[string][]error)
	}
	r.runs[job] = append(r.runs[job], err)
}

func (r *fakeRecorder) count(job string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs[job])
}

func setupLease(t *testing.T) (*cache.JobLease, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewJobLease(client), mr
}

func newTestManager(t *testing.T, lease LeaseAcquirer) (*SchedulerManager, *fakeRecorder) {
	t.Helper()
	m, err := NewSchedulerManager(lease, time.Minute, logger.NewNopLogger())
	require.NoError(t, err)
	rec := &fakeRecorder{}
	m.SetRecorder(rec)
	return m, rec
}

func TestRunLeased_ExecutesAndReleases(t *testing.T) {
	lease, mr := setupLease(t)
	m, rec := newTestManager(t, lease)

	var calls int32
	job := BatchJobFunc(func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		assert.True(t, mr.Exists(constants.RedisKeyJobLeasePrefix+constants.JobRunDueRenewals))
		return 3, nil
	})

	m.runLeased(context.Background(), constants.JobRunDueRenewals, job)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, mr.Exists(constants.RedisKeyJobLeasePrefix+constants.JobRunDueRenewals))
	assert.Equal(t, 1, rec.count(constants.JobRunDueRenewals))
}

func TestRunLeased_SkipsWhenLeaseHeld(t *testing.T) {
	lease, _ := setupLease(t)
	m, rec := newTestManager(t, lease)

	held, err := lease.Acquire(context.Background(), constants.JobRunDueRenewals, time.Minute)
	require.NoError(t, err)
	defer func() { _ = held.Release(context.Background()) }()

	var calls int32
	m.runLeased(context.Background(), constants.JobRunDueRenewals, BatchJobFunc(func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, nil
	}))

	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Zero(t, rec.count(constants.JobRunDueRenewals))
}

func TestRunLeased_RecordsFailure(t *testing.T) {
	m, rec := newTestManager(t, nil)
	boom := errors.New("selection failed")

	m.runLeased(context.Background(), constants.JobExpireSubscriptions, BatchJobFunc(func(ctx context.Context) (int, error) {
		return 0, boom
	}))

	require.Equal(t, 1, rec.count(constants.JobExpireSubscriptions))
	assert.ErrorIs(t, rec.runs[constants.JobExpireSubscriptions][0], boom)
}

func TestProcessGracePeriodTasks_RunsInOrder(t *testing.T) {
	lease, _ := setupLease(t)
	m, _ := newTestManager(t, lease)

	var mu sync.Mutex
	var order []string
	step := func(name string) BatchJob {
		return BatchJobFunc(func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return 0, nil
		})
	}

	m.processGracePeriodTasks(context.Background(), step("warn"), step("suspend"), step("expire"))

	assert.Equal(t, []string{"warn", "suspend", "expire"}, order)
}

func TestSchedulerManager_RenewalJobStartsImmediately(t *testing.T) {
	lease, _ := setupLease(t)
	m, rec := newTestManager(t, lease)

	require.NoError(t, m.RegisterRenewalJob(time.Hour, BatchJobFunc(func(ctx context.Context) (int, error) {
		return 1, nil
	})))
	require.NoError(t, m.RegisterGracePeriodJobs("0 6 * * *", BatchJobFunc(func(ctx context.Context) (int, error) {
		return 0, nil
	}), BatchJobFunc(func(ctx context.Context) (int, error) {
		return 0, nil
	}), nil))
	assert.Len(t, m.Jobs(), 2)

	m.Start()
	assert.True(t, m.IsStarted())

	assert.Eventually(t, func() bool {
		return rec.count(constants.JobRunDueRenewals) == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.False(t, m.IsStarted())
}

func TestSchedulerManager_InvalidCron(t *testing.T) {
	m, _ := newTestManager(t, nil)

	err := m.RegisterGracePeriodJobs("not a cron", nil, nil, nil)
	assert.Error(t, err)
}
