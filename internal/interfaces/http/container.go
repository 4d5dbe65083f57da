package http

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/infrastructure/adapters"
	"github.com/orris-inc/billing/internal/infrastructure/cache"
	"github.com/orris-inc/billing/internal/infrastructure/config"
	"github.com/orris-inc/billing/internal/infrastructure/metrics"
	"github.com/orris-inc/billing/internal/infrastructure/notification"
	"github.com/orris-inc/billing/internal/infrastructure/provisioning"
	"github.com/orris-inc/billing/internal/infrastructure/reconciliation"
	"github.com/orris-inc/billing/internal/infrastructure/scheduler"
	"github.com/orris-inc/billing/internal/interfaces/http/handlers/planchange"
	"github.com/orris-inc/billing/internal/shared/db"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// Container holds all infrastructure components, repositories, use cases and
// handlers. It is responsible for wiring everything together and providing a
// Shutdown() method for graceful termination.
type Container struct {
	db    *gorm.DB
	cfg   *config.Config
	log   logger.Interface
	redis *redis.Client

	repos    *repositories
	ucs      *UseCases
	metrics  *metrics.Recorder
	notifier *notification.Dispatcher
	lease    *cache.JobLease

	planChangeHandler *planchange.Handler
}

// NewContainer wires the application on top of an open database and Redis
// client. Call Start before serving traffic or running jobs.
func NewContainer(cfg *config.Config, database *gorm.DB, redisClient *redis.Client, log logger.Interface) (*Container, error) {
	c := &Container{
		db:      database,
		cfg:     cfg,
		log:     log,
		redis:   redisClient,
		repos:   newRepositories(database, log),
		metrics: metrics.NewRecorder(),
		lease:   cache.NewJobLease(redisClient),
	}

	directory := adapters.NewUserDirectoryAdapter(database, log)
	notifier, err := newNotifier(cfg, directory, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build notifier: %w", err)
	}
	c.notifier = notifier

	c.ucs = newUseCases(cfg, useCaseDeps{
		repos:    c.repos,
		txMgr:    db.NewTransactionManager(database),
		gateways: newGatewayRegistry(cfg, log),
		users:    directory,
		notifier: notifier,
		queue:    provisioning.NewRedisQueue(redisClient, log),
		metrics:  c.metrics,

		reconciliation: reconciliation.NewRedisLog(redisClient, cfg.Billing.RetryInterval, log.Named("reconciliation")),
	}, log)

	c.planChangeHandler = planchange.NewHandler(
		c.ucs.ScheduleChange,
		c.ucs.InitiateImmediateChange,
		c.ucs.CompleteImmediateChange,
		c.ucs.CancelChange,
		c.ucs.PreviewChange,
		c.ucs.Reactivate,
		log.Named("http"),
	)

	return c, nil
}

// Start launches background delivery of notifications.
func (c *Container) Start(ctx context.Context) {
	c.notifier.Start(ctx)
}

func (c *Container) UseCases() *UseCases {
	return c.ucs
}

func (c *Container) Metrics() *metrics.Recorder {
	return c.metrics
}

// NewScheduler builds a scheduler running the lifecycle jobs under the
// Redis job lease.
func (c *Container) NewScheduler() (*scheduler.SchedulerManager, error) {
	sm, err := scheduler.NewSchedulerManager(c.lease, c.cfg.Scheduler.LeaseTTL, c.log.Named("scheduler"))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	sm.SetRecorder(c.metrics)

	jobs := NewBatchJobs(c.ucs, c.cfg.Billing)
	if err := sm.RegisterRenewalJob(c.cfg.Scheduler.RenewalInterval, jobs.Renewals); err != nil {
		return nil, fmt.Errorf("failed to register renewal job: %w", err)
	}
	if err := sm.RegisterGracePeriodJobs(c.cfg.Scheduler.DailyAt, jobs.Warnings, jobs.Suspensions, jobs.Expiries); err != nil {
		return nil, fmt.Errorf("failed to register grace period jobs: %w", err)
	}
	return sm, nil
}

// Router builds the gin engine serving the API, health and metrics.
func (c *Container) Router() *gin.Engine {
	return newRouter(c)
}

// Shutdown drains queued notifications. The database and Redis connections
// belong to the caller.
func (c *Container) Shutdown() {
	c.log.Infow("shutting down container")
	c.notifier.Close()
}
