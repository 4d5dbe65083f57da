package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/order"
	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/logger"
)

const (
	purposeRenewal = "renewal"
	purposeCredit  = "credit"
	purposeUpgrade = "upgrade"
)

type RunDueRenewalsCommand struct {
	Limit  int
	DryRun bool
	// SubscriptionID restricts the run to one subscription. It is still
	// skipped unless it is due.
	SubscriptionID uint
}

// RenewalPolicy holds the timing and failure settings of the renewal run.
type RenewalPolicy struct {
	Window        time.Duration
	Lead          time.Duration
	RetryInterval time.Duration
	Grace         subscription.GracePeriodPolicy
}

type RunDueRenewalsUseCase struct {
	subscriptionRepo subscription.Repository
	planRepo         subscription.PlanRepository
	planChangeRepo   subscription.PlanChangeRepository
	charger          *RecurringCharger
	txMgr            TransactionManager
	notifier         NotificationDispatcher
	policy           RenewalPolicy
	metrics          MetricsRecorder
	logger           logger.Interface
	now              func() time.Time
}

func NewRunDueRenewalsUseCase(
	subscriptionRepo subscription.Repository,
	planRepo subscription.PlanRepository,
	planChangeRepo subscription.PlanChangeRepository,
	charger *RecurringCharger,
	txMgr TransactionManager,
	notifier NotificationDispatcher,
	policy RenewalPolicy,
	logger logger.Interface,
) *RunDueRenewalsUseCase {
	return &RunDueRenewalsUseCase{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		planChangeRepo:   planChangeRepo,
		charger:          charger,
		txMgr:            txMgr,
		notifier:         notifier,
		policy:           policy,
		metrics:          NoopMetrics(),
		logger:           logger,
		now:              biztime.NowUTC,
	}
}

// SetMetrics sets the metrics recorder (optional).
func (uc *RunDueRenewalsUseCase) SetMetrics(m MetricsRecorder) {
	if m != nil {
		uc.metrics = m
	}
}

// renewal is what a committed attempt leaves for the notify stage.
type renewal struct {
	sub          *subscription.Subscription
	plan         *subscription.Plan
	charged      ledger.Money
	creditUsed   ledger.Money
	succeeded    bool
	pending      bool
	reason       string
	autoRenewOff bool
}

// Execute selects due subscriptions and renews each in its own transaction.
// It returns an error only when selection fails.
func (uc *RunDueRenewalsUseCase) Execute(ctx context.Context, cmd RunDueRenewalsCommand) (*BatchReport, error) {
	report := newBatchReport("run_due_renewals", cmd.DryRun, uc.now())

	ids, err := uc.selectIDs(ctx, cmd)
	if err != nil {
		uc.logger.Errorw("failed to select subscriptions for renewal", "error", err, "stage", StageSelect)
		return nil, fmt.Errorf("failed to select subscriptions for renewal: %w", err)
	}
	report.Selected = len(ids)
	if len(ids) == 0 {
		report.FinishedAt = uc.now()
		return report, nil
	}

	uc.logger.Infow("processing due renewals", "count", len(ids), "dry_run", cmd.DryRun)

	for _, id := range ids {
		if ctx.Err() != nil {
			uc.logger.Warnw("renewal run cancelled", "remaining", len(ids)-len(report.Items))
			break
		}
		subscriptionID := id
		item := processItem(ctx, uc.logger, subscriptionID, func(ctx context.Context, stage *string) BatchItem {
			if cmd.DryRun {
				return uc.preview(ctx, subscriptionID, stage)
			}
			return uc.renewOne(ctx, subscriptionID, stage)
		})
		if !cmd.DryRun {
			uc.metrics.RenewalOutcome(item.Outcome)
		}
		report.add(item)
	}

	report.FinishedAt = uc.now()
	uc.logger.Infow("renewal run finished",
		"selected", report.Selected,
		"renewed", report.Count(OutcomeRenewed),
		"failed", report.Count(OutcomeFailed),
		"pending", report.Count(OutcomePending),
		"skipped", report.Count(OutcomeSkipped),
		"errored", report.Count(OutcomeErrored),
		"dry_run", cmd.DryRun,
	)
	return report, nil
}

func (uc *RunDueRenewalsUseCase) selectIDs(ctx context.Context, cmd RunDueRenewalsCommand) ([]uint, error) {
	if cmd.SubscriptionID != 0 {
		return []uint{cmd.SubscriptionID}, nil
	}
	return uc.subscriptionRepo.FindDueForRenewal(ctx, uc.now(), uc.policy.Window, cmd.Limit)
}

// preview reports what a live run would charge. It only reads.
func (uc *RunDueRenewalsUseCase) preview(ctx context.Context, subscriptionID uint, stage *string) BatchItem {
	sub, err := uc.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return erroredItem(*stage, err)
	}
	if sub == nil {
		return BatchItem{Outcome: OutcomeSkipped, Detail: "subscription not found"}
	}
	now := uc.now()
	if !sub.IsDueForRenewal(now, uc.policy.Window) {
		return BatchItem{SubscriptionSID: sub.SID(), Outcome: OutcomeSkipped, Detail: "not due"}
	}

	plan, _, err := uc.planForRenewal(ctx, sub, now)
	if err != nil {
		return erroredItem(*stage, err)
	}
	due, _, err := amountAfterCredit(sub, plan)
	if err != nil {
		return erroredItem(*stage, err)
	}

	item := BatchItem{
		SubscriptionSID: sub.SID(),
		Outcome:         OutcomeWouldProcess,
		Amount:          due.String(),
		Detail:          "plan " + plan.Name(),
	}
	*stage = StageLookupAuthorization
	if _, err := uc.charger.LookupAuthorization(ctx, sub.ID()); err != nil {
		item.Detail = "would fail: " + err.Error()
	}
	return item
}

// renewOne is the unit of atomicity: lock, re-check, charge and write all
// happen in one transaction. Notifications go out after commit.
func (uc *RunDueRenewalsUseCase) renewOne(ctx context.Context, subscriptionID uint, stage *string) BatchItem {
	var (
		result *renewal
		paid   settledCharge
	)
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		*stage = StageLoad
		sub, err := uc.subscriptionRepo.GetByIDForUpdate(txCtx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		if sub == nil {
			return subscription.ErrSubscriptionNotFound
		}

		now := uc.now()
		if !sub.IsDueForRenewal(now, uc.policy.Window) {
			return nil
		}

		r, err := uc.attempt(txCtx, sub, now, stage, &paid)
		if err != nil {
			return err
		}

		*stage = StageCommit
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		result = r
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to process renewal",
			"subscription_id", subscriptionID,
			"stage", *stage,
			"error", err,
		)
		uc.charger.ReconcileUncommitted(ctx, &paid, err)
		return erroredItem(*stage, err)
	}
	if result == nil {
		return BatchItem{Outcome: OutcomeSkipped, Detail: "no longer due"}
	}
	if result.pending {
		uc.logger.Warnw("renewal charge pending at gateway",
			"subscription_id", subscriptionID,
			"next_renewal_at", result.sub.NextRenewalAt(),
			"reason", result.reason,
		)
		return BatchItem{SubscriptionSID: result.sub.SID(), Outcome: OutcomePending, Detail: result.reason}
	}

	*stage = StageNotify
	uc.notify(ctx, result)

	item := BatchItem{SubscriptionSID: result.sub.SID()}
	if result.succeeded {
		item.Outcome = OutcomeRenewed
		item.Amount = result.charged.String()
		uc.logger.Infow("subscription renewed",
			"subscription_id", subscriptionID,
			"plan_id", result.plan.ID(),
			"charged", result.charged.String(),
			"credit_used", result.creditUsed.String(),
			"expires_at", result.sub.ExpiresAt(),
		)
		return item
	}

	item.Outcome = OutcomeFailed
	item.Detail = result.reason
	uc.logger.Warnw("subscription renewal failed",
		"subscription_id", subscriptionID,
		"reason", result.reason,
		"failure_count", result.sub.PaymentHealth().FailureCount(),
		"auto_renew_disabled", result.autoRenewOff,
	)
	return item
}

// attempt makes at most one gateway call. Declines, gateway errors and a
// missing stored authorization all become a recorded payment failure. A
// charge the gateway has not settled is neither: the renewal is only
// deferred. A successful charge is copied into paid.
func (uc *RunDueRenewalsUseCase) attempt(ctx context.Context, sub *subscription.Subscription,
	now time.Time, stage *string, paid *settledCharge) (*renewal, error) {
	plan, applyChange, err := uc.planForRenewal(ctx, sub, now)
	if err != nil {
		return nil, err
	}
	due, creditUsed, err := amountAfterCredit(sub, plan)
	if err != nil {
		return nil, err
	}

	*stage = StageLookupAuthorization
	auth, err := uc.charger.LookupAuthorization(ctx, sub.ID())
	if err != nil {
		if errors.Is(err, order.ErrNoPreviousOrder) || errors.Is(err, order.ErrNoStoredAuthorization) {
			return uc.recordFailure(sub, plan, now, err.Error())
		}
		return nil, err
	}

	var charge *paymentgateway.ChargeResult
	if due.IsPositive() {
		*stage = StageCharge
		charge, err = uc.charger.Charge(ctx, sub, auth, due, purposeRenewal)
		if errors.Is(err, paymentgateway.ErrChargePending) {
			sub.DeferRenewal(now.Add(uc.policy.RetryInterval))
			return &renewal{sub: sub, plan: plan, pending: true, reason: err.Error()}, nil
		}
		if err != nil {
			return uc.recordFailure(sub, plan, now, err.Error())
		}
		if !charge.Success {
			reason := charge.FailureReason
			if reason == "" {
				reason = "charge declined"
			}
			return uc.recordFailure(sub, plan, now, reason)
		}
		*paid = settledCharge{sub: sub, auth: auth, amount: due, result: charge}
	}

	*stage = StageCommit
	if applyChange {
		if err := uc.applyScheduledChange(ctx, sub, now); err != nil {
			return nil, err
		}
	}
	if creditUsed.IsPositive() {
		if _, err := sub.ConsumeCredit(creditUsed); err != nil {
			return nil, err
		}
	}
	newExpiry := later(sub.ExpiresAt(), now).AddDate(0, 0, plan.DurationDays())
	if err := sub.ExtendPeriod(newExpiry, now, uc.policy.Lead); err != nil {
		return nil, err
	}
	if _, err := uc.charger.RecordOrder(ctx, sub, auth, due, charge); err != nil {
		return nil, err
	}

	return &renewal{sub: sub, plan: plan, charged: due, creditUsed: creditUsed, succeeded: true}, nil
}

// planForRenewal returns the plan the next period is billed on. A scheduled
// change is due when it falls at or before the start of that period.
func (uc *RunDueRenewalsUseCase) planForRenewal(ctx context.Context, sub *subscription.Subscription,
	now time.Time) (*subscription.Plan, bool, error) {
	planID, applyChange := sub.PlanID(), false
	if change := sub.ScheduledChange(); change != nil && change.DueBy(later(sub.ExpiresAt(), now)) {
		planID, applyChange = change.PlanID(), true
	}

	plan, err := uc.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, false, fmt.Errorf("plan %d: %w", planID, subscription.ErrPlanNotFound)
	}
	return plan, applyChange, nil
}

func (uc *RunDueRenewalsUseCase) applyScheduledChange(ctx context.Context, sub *subscription.Subscription, now time.Time) error {
	planID, applied := sub.ApplyScheduledPlanChange(later(sub.ExpiresAt(), now))
	if !applied {
		return nil
	}

	changes, err := uc.planChangeRepo.FindScheduledBySubscriptionID(ctx, sub.ID())
	if err != nil {
		return fmt.Errorf("failed to find scheduled plan changes: %w", err)
	}
	for _, change := range changes {
		if change.ExecutionType() != vo.ExecutionScheduled || change.ToPlanID() != planID {
			continue
		}
		if err := change.Complete(now); err != nil {
			return err
		}
		if err := uc.planChangeRepo.Update(ctx, change); err != nil {
			return fmt.Errorf("failed to update plan change: %w", err)
		}
		uc.metrics.PlanChange(string(change.ChangeType()), string(change.ExecutionType()), string(change.Status()))
	}
	return nil
}

func (uc *RunDueRenewalsUseCase) recordFailure(sub *subscription.Subscription, plan *subscription.Plan,
	now time.Time, reason string) (*renewal, error) {
	if err := sub.RecordPaymentFailure(now); err != nil {
		return nil, err
	}
	sub.DeferRenewal(now.Add(uc.policy.RetryInterval))

	autoRenewOff := false
	if uc.policy.Grace.ShouldDisableAutoRenew(sub) && sub.AutoRenew() {
		sub.SetAutoRenew(false)
		autoRenewOff = true
	}
	return &renewal{sub: sub, plan: plan, reason: reason, autoRenewOff: autoRenewOff}, nil
}

func (uc *RunDueRenewalsUseCase) notify(ctx context.Context, r *renewal) {
	kind := NotificationRenewed
	data := map[string]any{
		"subscription_sid": r.sub.SID(),
		"plan_name":        r.plan.Name(),
		"expires_at":       biztime.FormatDate(r.sub.ExpiresAt()),
	}
	if r.succeeded {
		data["amount"] = r.charged.Format()
		data["credit_used"] = r.creditUsed.Format()
	} else {
		kind = NotificationRenewalFailed
		data["amount"] = r.plan.Price().Format()
		data["reason"] = r.reason
		data["failure_count"] = r.sub.PaymentHealth().FailureCount()
		data["auto_renew_disabled"] = r.autoRenewOff
	}

	if err := uc.notifier.Send(ctx, r.sub.UserID(), kind, data); err != nil {
		uc.logger.Warnw("failed to queue renewal notification",
			"subscription_id", r.sub.ID(),
			"kind", kind,
			"stage", StageNotify,
			"error", err,
		)
	}
}

// amountAfterCredit splits the plan price into what the gateway is charged
// and what the credit balance covers.
func amountAfterCredit(sub *subscription.Subscription, plan *subscription.Plan) (due, creditUsed ledger.Money, err error) {
	price := plan.Price()
	if price.Currency() != sub.Currency() {
		return ledger.Money{}, ledger.Money{}, fmt.Errorf("plan %d priced in %s, subscription billed in %s: %w",
			plan.ID(), price.Currency(), sub.Currency(), ledger.ErrCurrencyMismatch)
	}
	creditUsed = sub.CreditBalance().Min(price)
	due, err = price.Sub(creditUsed)
	return due, creditUsed, err
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
