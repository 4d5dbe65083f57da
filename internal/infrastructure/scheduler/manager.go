// Package scheduler runs the billing lifecycle jobs using gocron v2.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/orris-inc/billing/internal/infrastructure/cache"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/constants"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// BatchJob processes one batch and returns the number of subscriptions it
// touched.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// BatchJobFunc adapts a function to BatchJob.
type BatchJobFunc func(ctx context.Context) (int, error)

func (f BatchJobFunc) Execute(ctx context.Context) (int, error) {
	return f(ctx)
}

// LeaseAcquirer hands out cross-instance job leases.
type LeaseAcquirer interface {
	Acquire(ctx context.Context, job string, ttl time.Duration) (*cache.Lease, error)
}

// JobRecorder observes job runs.
type JobRecorder interface {
	JobCompleted(job string, err error, elapsed time.Duration)
}

// SchedulerManager owns the gocron scheduler. Every job runs in singleton
// mode locally and under a Redis lease across instances.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	lease     LeaseAcquirer
	leaseTTL  time.Duration
	recorder  JobRecorder
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a manager whose cron expressions are evaluated
// in the business timezone. lease may be nil for a single-instance
// deployment.
func NewSchedulerManager(lease LeaseAcquirer, leaseTTL time.Duration, log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		lease:     lease,
		leaseTTL:  leaseTTL,
		logger:    log,
	}, nil
}

// SetRecorder sets the job recorder (optional).
func (m *SchedulerManager) SetRecorder(r JobRecorder) {
	m.recorder = r
}

// RegisterRenewalJob runs renewals every interval, starting immediately.
func (m *SchedulerManager) RegisterRenewalJob(interval time.Duration, renewals BatchJob) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), m.leaseTTL)
			defer cancel()
			m.runLeased(ctx, constants.JobRunDueRenewals, renewals)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("billing", "renewal"),
		gocron.WithName(constants.JobRunDueRenewals),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered renewal job", "interval", interval.String())
	return nil
}

// RegisterGracePeriodJobs runs the daily maintenance on cronExpr: suspension
// warnings, then suspensions, then expiry of non-renewing subscriptions.
func (m *SchedulerManager) RegisterGracePeriodJobs(cronExpr string, warnings, suspensions, expiries BatchJob) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), m.leaseTTL)
			defer cancel()
			m.processGracePeriodTasks(ctx, warnings, suspensions, expiries)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("billing", "grace-period"),
		gocron.WithName("grace-period-maintenance"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered grace period jobs", "cron", cronExpr)
	return nil
}

func (m *SchedulerManager) processGracePeriodTasks(ctx context.Context, warnings, suspensions, expiries BatchJob) {
	m.logger.Debugw("processing grace period tasks started")

	m.runLeased(ctx, constants.JobSendSuspensionWarnings, warnings)
	m.runLeased(ctx, constants.JobSuspendExpiredGracePeriods, suspensions)
	if expiries != nil {
		m.runLeased(ctx, constants.JobExpireSubscriptions, expiries)
	}
}

// runLeased executes job while holding its lease. A lease held elsewhere
// skips the run.
func (m *SchedulerManager) runLeased(ctx context.Context, name string, job BatchJob) {
	if m.lease != nil {
		lease, err := m.lease.Acquire(ctx, name, m.leaseTTL)
		if errors.Is(err, cache.ErrLeaseHeld) {
			m.logger.Debugw("job lease held by another instance, skipping", "job", name)
			return
		}
		if err != nil {
			m.logger.Errorw("failed to acquire job lease", "job", name, "error", err)
			return
		}
		defer func() {
			// The job ctx may already be done; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil {
				m.logger.Warnw("failed to release job lease", "job", name, "error", err)
			}
		}()
	}

	startTime := biztime.NowUTC()
	count, err := job.Execute(ctx)
	elapsed := time.Since(startTime)

	if m.recorder != nil {
		m.recorder.JobCompleted(name, err, elapsed)
	}

	if err != nil {
		m.logger.Errorw("scheduled job failed",
			"job", name,
			"error", err,
			"duration", elapsed,
		)
		return
	}

	if count > 0 {
		m.logger.Infow("scheduled job processed subscriptions",
			"job", name,
			"count", count,
			"duration", elapsed,
		)
	} else {
		m.logger.Debugw("scheduled job found nothing to process",
			"job", name,
			"duration", elapsed,
		)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
