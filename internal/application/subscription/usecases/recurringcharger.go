package usecases

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/order"
	"github.com/orris-inc/billing/internal/domain/subscription"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// StoredAuthorization is the reusable payment method found on a
// subscription's latest provisioned order.
type StoredAuthorization struct {
	Order *order.Order
	Token ledger.AuthorizationToken
}

// RecurringCharger is the one path through which stored authorizations are
// charged. Renewals and immediate upgrades both use it.
type RecurringCharger struct {
	orderRepo      order.Repository
	gateways       GatewayResolver
	users          UserDirectory
	timeout        time.Duration
	reconciliation ReconciliationLog
	metrics        MetricsRecorder
	logger         logger.Interface
}

func NewRecurringCharger(
	orderRepo order.Repository,
	gateways GatewayResolver,
	users UserDirectory,
	timeout time.Duration,
	logger logger.Interface,
) *RecurringCharger {
	return &RecurringCharger{
		orderRepo: orderRepo,
		gateways:  gateways,
		users:     users,
		timeout:   timeout,
		metrics:   NoopMetrics(),
		logger:    logger,
	}
}

// SetMetrics sets the metrics recorder (optional).
func (c *RecurringCharger) SetMetrics(m MetricsRecorder) {
	if m != nil {
		c.metrics = m
	}
}

// SetReconciliationLog sets where unreconciled charges are filed. Without
// one they are only logged.
func (c *RecurringCharger) SetReconciliationLog(l ReconciliationLog) {
	c.reconciliation = l
}

// LookupAuthorization finds the latest provisioned order of the subscription
// and extracts its token. It fails with order.ErrNoPreviousOrder or
// order.ErrNoStoredAuthorization.
func (c *RecurringCharger) LookupAuthorization(ctx context.Context, subscriptionID uint) (*StoredAuthorization, error) {
	latest, err := c.orderRepo.FindLatestProvisioned(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find latest order: %w", err)
	}
	if latest == nil {
		return nil, fmt.Errorf("subscription %d: %w", subscriptionID, order.ErrNoPreviousOrder)
	}

	token, err := latest.AuthorizationToken()
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", latest.OrderNo(), err)
	}
	return &StoredAuthorization{Order: latest, Token: token}, nil
}

// Charge makes at most one gateway call for amount. A decline comes back as
// a result with Success false; err is set only when the outcome is unknown.
// While an earlier charge of the subscription is held as pending, no call is
// made and the error wraps paymentgateway.ErrChargePending.
func (c *RecurringCharger) Charge(ctx context.Context, sub *subscription.Subscription,
	auth *StoredAuthorization, amount ledger.Money, purpose string) (*paymentgateway.ChargeResult, error) {
	gateway, err := c.gateways.Get(auth.Order.Gateway())
	if err != nil {
		return nil, err
	}
	if c.held(ctx, sub) {
		return nil, fmt.Errorf("subscription %s has an unsettled charge: %w", sub.SID(), paymentgateway.ErrChargePending)
	}

	req := paymentgateway.ChargeRequest{
		Token:     auth.Token,
		Amount:    amount,
		Reference: chargeReference(purpose, sub.SID()),
		Email:     auth.Token.Email,
		Metadata: map[string]string{
			"purpose":          purpose,
			"subscription_sid": sub.SID(),
		},
	}
	if req.Email == "" && c.users != nil {
		contact, err := c.users.GetContact(ctx, sub.UserID())
		if err != nil {
			c.logger.Warnw("failed to look up billing contact",
				"subscription_id", sub.ID(),
				"user_id", sub.UserID(),
				"error", err,
			)
		} else if contact != nil {
			req.Email = contact.Email
		}
	}

	chargeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	result, err := gateway.ChargeRecurring(chargeCtx, req)
	elapsed := time.Since(started)
	c.metrics.ChargeCompleted(gateway.Name(), err == nil && result != nil && result.Success, elapsed)

	if errors.Is(err, paymentgateway.ErrChargePending) {
		c.reconcile(ctx, ChargeReconciliation{
			Reason:          ReconcileChargePending,
			SubscriptionID:  sub.ID(),
			SubscriptionSID: sub.SID(),
			Gateway:         string(gateway.Name()),
			Reference:       req.Reference,
			AmountMinor:     amount.Minor(),
			Currency:        amount.Currency().String(),
			Detail:          err.Error(),
		})
		return nil, fmt.Errorf("gateway %s: %w", gateway.Name(), err)
	}
	if err != nil {
		c.logger.Warnw("gateway charge errored",
			"subscription_id", sub.ID(),
			"gateway", gateway.Name(),
			"reference", req.Reference,
			"elapsed", elapsed,
			"error", err,
		)
		return nil, fmt.Errorf("gateway %s: %w", gateway.Name(), err)
	}
	if result == nil {
		return nil, fmt.Errorf("gateway %s returned no result", gateway.Name())
	}
	if result.Reference == "" {
		result.Reference = req.Reference
	}

	c.logger.Infow("gateway charge completed",
		"subscription_id", sub.ID(),
		"gateway", gateway.Name(),
		"reference", result.Reference,
		"success", result.Success,
		"elapsed", elapsed,
	)
	return result, nil
}

// RecordOrder stores the provisioned order for a successful charge. The new
// order keeps the previous order's metadata underneath the gateway response
// so the stored authorization survives responses that omit it. A nil result
// records a charge fully covered by credit.
func (c *RecurringCharger) RecordOrder(ctx context.Context, sub *subscription.Subscription,
	auth *StoredAuthorization, amount ledger.Money, result *paymentgateway.ChargeResult) (*order.Order, error) {
	metadata := auth.Order.Metadata()
	reference, transactionID := chargeReference(purposeCredit, sub.SID()), ""
	if result != nil {
		maps.Copy(metadata, result.RawResponse)
		reference, transactionID = result.Reference, result.TransactionID
	}

	ord, err := order.NewProvisionedOrder(sub.ID(), sub.UserID(), auth.Order.Gateway(), amount,
		reference, transactionID, metadata)
	if err != nil {
		return nil, err
	}
	if err := c.orderRepo.Create(ctx, ord); err != nil {
		c.logger.Errorw("failed to create order after successful charge",
			"subscription_id", sub.ID(),
			"reference", reference,
			"transaction_id", transactionID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return ord, nil
}

// settledCharge is a successful gateway charge held by the caller until the
// transaction recording it commits.
type settledCharge struct {
	sub    *subscription.Subscription
	auth   *StoredAuthorization
	amount ledger.Money
	result *paymentgateway.ChargeResult
}

// ReconcileUncommitted files a settled charge whose transaction failed. The
// customer was charged but no order exists for it.
func (c *RecurringCharger) ReconcileUncommitted(ctx context.Context, paid *settledCharge, cause error) {
	if paid == nil || paid.result == nil {
		return
	}
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	c.reconcile(ctx, ChargeReconciliation{
		Reason:          ReconcileOrderNotPersisted,
		SubscriptionID:  paid.sub.ID(),
		SubscriptionSID: paid.sub.SID(),
		Gateway:         string(paid.auth.Order.Gateway()),
		Reference:       paid.result.Reference,
		TransactionID:   paid.result.TransactionID,
		AmountMinor:     paid.amount.Minor(),
		Currency:        paid.amount.Currency().String(),
		Detail:          detail,
	})
}

// held fails open: a Redis outage must not stop billing.
func (c *RecurringCharger) held(ctx context.Context, sub *subscription.Subscription) bool {
	if c.reconciliation == nil {
		return false
	}
	held, err := c.reconciliation.Held(ctx, sub.ID())
	if err != nil {
		c.logger.Warnw("failed to check pending charge hold",
			"subscription_id", sub.ID(),
			"error", err,
		)
		return false
	}
	return held
}

func (c *RecurringCharger) reconcile(ctx context.Context, entry ChargeReconciliation) {
	entry.RecordedAt = biztime.NowUTC()
	c.logger.Errorw("charge needs reconciliation",
		"reason", entry.Reason,
		"subscription_id", entry.SubscriptionID,
		"gateway", entry.Gateway,
		"reference", entry.Reference,
		"transaction_id", entry.TransactionID,
		"amount_minor", entry.AmountMinor,
		"currency", entry.Currency,
		"detail", entry.Detail,
	)
	if c.reconciliation == nil {
		return
	}

	// The caller's ctx may already be cancelled.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.reconciliation.Record(recordCtx, entry); err != nil {
		c.logger.Errorw("failed to record charge for reconciliation",
			"reference", entry.Reference,
			"error", err,
		)
	}
}

func chargeReference(purpose, subscriptionSID string) string {
	return fmt.Sprintf("%s_%s_%s", purpose, subscriptionSID, uuid.NewString())
}

// RecordExternalOrder stores a payment collected outside the stored
// authorization path, such as a checkout the customer completed for an
// upgrade. Its metadata becomes the authorization for later renewals.
func (c *RecurringCharger) RecordExternalOrder(ctx context.Context, sub *subscription.Subscription,
	gateway ledger.GatewayName, amount ledger.Money, reference, transactionID string,
	metadata map[string]any) (*order.Order, error) {
	ord, err := order.NewProvisionedOrder(sub.ID(), sub.UserID(), gateway, amount, reference, transactionID, metadata)
	if err != nil {
		return nil, err
	}
	if err := c.orderRepo.Create(ctx, ord); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return ord, nil
}
