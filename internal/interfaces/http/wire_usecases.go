package http

import (
	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/domain/subscription"
	"github.com/orris-inc/billing/internal/infrastructure/config"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// UseCases holds every billing use case, shared by the HTTP server, the
// scheduler and the batch commands.
type UseCases struct {
	RunDueRenewals             *usecases.RunDueRenewalsUseCase
	SendSuspensionWarnings     *usecases.SendSuspensionWarningsUseCase
	SuspendExpiredGracePeriods *usecases.SuspendExpiredGracePeriodsUseCase
	ExpireSubscriptions        *usecases.ExpireSubscriptionsUseCase
	Reactivate                 *usecases.ReactivateSubscriptionUseCase

	ScheduleChange          *usecases.ScheduleChangeUseCase
	CancelChange            *usecases.CancelChangeUseCase
	InitiateImmediateChange *usecases.InitiateImmediateChangeUseCase
	CompleteImmediateChange *usecases.CompleteImmediateChangeUseCase
	PreviewChange           *usecases.PreviewChangeUseCase
}

type useCaseDeps struct {
	repos    *repositories
	txMgr    usecases.TransactionManager
	gateways usecases.GatewayResolver
	users    usecases.UserDirectory
	notifier usecases.NotificationDispatcher
	queue    usecases.ProvisioningQueue
	metrics  usecases.MetricsRecorder

	// reconciliation may be nil; unreconciled charges are then only logged.
	reconciliation usecases.ReconciliationLog
}

func newUseCases(cfg *config.Config, deps useCaseDeps, log logger.Interface) *UseCases {
	grace := subscription.NewGracePeriodPolicy(cfg.Billing.FailureThreshold, cfg.Billing.GraceExtension)

	charger := usecases.NewRecurringCharger(
		deps.repos.orderRepo,
		deps.gateways,
		deps.users,
		cfg.Billing.GatewayTimeout,
		log.Named("charger"),
	)
	charger.SetMetrics(deps.metrics)
	if deps.reconciliation != nil {
		charger.SetReconciliationLog(deps.reconciliation)
	}

	renewals := usecases.NewRunDueRenewalsUseCase(
		deps.repos.subscriptionRepo,
		deps.repos.planRepo,
		deps.repos.planChangeRepo,
		charger,
		deps.txMgr,
		deps.notifier,
		usecases.RenewalPolicy{
			Window:        cfg.Billing.RenewalWindow,
			Lead:          cfg.Billing.RenewalLead,
			RetryInterval: cfg.Billing.RetryInterval,
			Grace:         grace,
		},
		log.Named("renewals"),
	)
	renewals.SetMetrics(deps.metrics)

	warnings := usecases.NewSendSuspensionWarningsUseCase(
		deps.repos.subscriptionRepo,
		deps.repos.planRepo,
		deps.txMgr,
		deps.notifier,
		grace,
		log.Named("suspension_warnings"),
	)
	warnings.SetMetrics(deps.metrics)

	suspensions := usecases.NewSuspendExpiredGracePeriodsUseCase(
		deps.repos.subscriptionRepo,
		deps.txMgr,
		deps.queue,
		deps.notifier,
		grace,
		log.Named("suspensions"),
	)
	suspensions.SetMetrics(deps.metrics)

	expiries := usecases.NewExpireSubscriptionsUseCase(deps.repos.subscriptionRepo, deps.txMgr, log.Named("expiries"))
	expiries.SetMetrics(deps.metrics)

	planChangeDeps := usecases.PlanChangeDeps{
		SubscriptionRepo: deps.repos.subscriptionRepo,
		PlanRepo:         deps.repos.planRepo,
		PlanChangeRepo:   deps.repos.planChangeRepo,
		TxMgr:            deps.txMgr,
		Notifier:         deps.notifier,
		Metrics:          deps.metrics,
		Logger:           log.Named("plan_changes"),
	}

	return &UseCases{
		RunDueRenewals:             renewals,
		SendSuspensionWarnings:     warnings,
		SuspendExpiredGracePeriods: suspensions,
		ExpireSubscriptions:        expiries,
		Reactivate:                 usecases.NewReactivateSubscriptionUseCase(deps.repos.subscriptionRepo, deps.txMgr, deps.queue, log.Named("reactivation")),

		ScheduleChange:          usecases.NewScheduleChangeUseCase(planChangeDeps),
		CancelChange:            usecases.NewCancelChangeUseCase(planChangeDeps),
		InitiateImmediateChange: usecases.NewInitiateImmediateChangeUseCase(planChangeDeps),
		CompleteImmediateChange: usecases.NewCompleteImmediateChangeUseCase(planChangeDeps, charger),
		PreviewChange:           usecases.NewPreviewChangeUseCase(planChangeDeps),
	}
}
