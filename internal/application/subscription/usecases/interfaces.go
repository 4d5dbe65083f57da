package usecases

import (
	"context"
	"time"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/domain/ledger"
)

// TransactionManager runs fn in one database transaction; repositories called
// with the ctx passed to fn join it.
type TransactionManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// GatewayResolver returns the gateway that produced an order.
type GatewayResolver interface {
	Get(name ledger.GatewayName) (paymentgateway.RecurringGateway, error)
}

type NotificationKind string

const (
	NotificationRenewed               NotificationKind = "renewed"
	NotificationRenewalFailed         NotificationKind = "renewal_failed"
	NotificationSuspensionWarning     NotificationKind = "suspension_warning"
	NotificationSubscriptionSuspended NotificationKind = "subscription_suspended"
	NotificationPlanChanged           NotificationKind = "plan_changed"
)

// NotificationDispatcher queues a templated message for a user. A nil error
// means the message was accepted for delivery, not that it was delivered.
type NotificationDispatcher interface {
	Send(ctx context.Context, userID uint, kind NotificationKind, data map[string]any) error
}

type ProvisioningAction string

const (
	ProvisioningSuspend    ProvisioningAction = "suspend"
	ProvisioningReactivate ProvisioningAction = "reactivate"
)

// ProvisioningInstruction asks the external account system to act on the
// service account behind a subscription.
type ProvisioningInstruction struct {
	Action           ProvisioningAction `json:"action"`
	SubscriptionID   uint               `json:"subscription_id"`
	SubscriptionSID  string             `json:"subscription_sid"`
	ServiceAccountID string             `json:"service_account_id"`
	RequestedAt      time.Time          `json:"requested_at"`
}

// ProvisioningQueue is fire-and-forget: Enqueue returns once the instruction
// is queued and never waits for execution.
type ProvisioningQueue interface {
	Enqueue(ctx context.Context, instruction ProvisioningInstruction) error
}

const (
	ReconcileChargePending     = "charge_pending"
	ReconcileOrderNotPersisted = "order_not_persisted"
)

// ChargeReconciliation is a gateway charge the database may not reflect: the
// provider left it unsettled, or it succeeded and the transaction recording
// it did not commit.
type ChargeReconciliation struct {
	Reason          string    `json:"reason"`
	SubscriptionID  uint      `json:"subscription_id"`
	SubscriptionSID string    `json:"subscription_sid"`
	Gateway         string    `json:"gateway"`
	Reference       string    `json:"reference"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	AmountMinor     int64     `json:"amount_minor"`
	Currency        string    `json:"currency"`
	Detail          string    `json:"detail,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// ReconciliationLog stores entries outside the database transaction so they
// survive its rollback. Recording a pending charge also holds the
// subscription: Held reports true until the hold expires.
type ReconciliationLog interface {
	Record(ctx context.Context, entry ChargeReconciliation) error
	Held(ctx context.Context, subscriptionID uint) (bool, error)
}

type UserContact struct {
	UserID uint
	Email  string
	Name   string
}

// UserDirectory looks up the billing contact of a user.
type UserDirectory interface {
	GetContact(ctx context.Context, userID uint) (*UserContact, error)
}

// MetricsRecorder receives lifecycle counters. Implementations must be safe
// for concurrent use.
type MetricsRecorder interface {
	RenewalOutcome(outcome string)
	ChargeCompleted(gateway ledger.GatewayName, success bool, elapsed time.Duration)
	SuspensionWarningSent()
	SubscriptionSuspended()
	SubscriptionExpired()
	PlanChange(changeType, executionType, status string)
}

type noopMetrics struct{}

func (noopMetrics) RenewalOutcome(string)                                   {}
func (noopMetrics) ChargeCompleted(ledger.GatewayName, bool, time.Duration) {}
func (noopMetrics) SuspensionWarningSent()                                  {}
func (noopMetrics) SubscriptionSuspended()                                  {}
func (noopMetrics) SubscriptionExpired()                                    {}
func (noopMetrics) PlanChange(string, string, string)                       {}

// NoopMetrics discards everything.
func NoopMetrics() MetricsRecorder {
	return noopMetrics{}
}
