package order

import (
	"fmt"
	"maps"
	"time"

	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/id"
)

// Order is one billing event for a subscription: the initial checkout or a
// renewal charge. Orders are append-only; a renewal never edits an earlier
// order.
type Order struct {
	id             uint
	orderNo        string
	subscriptionID uint
	userID         uint
	status         Status
	gateway        ledger.GatewayName
	metadata       map[string]any
	amount         ledger.Money
	reference      string
	transactionID  string
	createdAt      time.Time
}

// NewProvisionedOrder records a successful charge.
func NewProvisionedOrder(subscriptionID, userID uint, gateway ledger.GatewayName, amount ledger.Money,
	reference, transactionID string, metadata map[string]any) (*Order, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("%w: subscription ID is required", ErrInvalidOrder)
	}
	if userID == 0 {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidOrder)
	}
	if _, err := ledger.ParseGatewayName(string(gateway)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}
	if amount.Currency() == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrder, ledger.ErrInvalidCurrency)
	}

	return &Order{
		orderNo:        id.NewOrderNo(),
		subscriptionID: subscriptionID,
		userID:         userID,
		status:         StatusProvisioned,
		gateway:        gateway,
		metadata:       cloneMetadata(metadata),
		amount:         amount,
		reference:      reference,
		transactionID:  transactionID,
		createdAt:      biztime.NowUTC(),
	}, nil
}

func ReconstructOrder(orderID uint, orderNo string, subscriptionID, userID uint, status Status,
	gateway ledger.GatewayName, metadata map[string]any, amount ledger.Money,
	reference, transactionID string, createdAt time.Time) (*Order, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("order ID cannot be zero")
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	return &Order{
		id:             orderID,
		orderNo:        orderNo,
		subscriptionID: subscriptionID,
		userID:         userID,
		status:         status,
		gateway:        gateway,
		metadata:       cloneMetadata(metadata),
		amount:         amount,
		reference:      reference,
		transactionID:  transactionID,
		createdAt:      createdAt,
	}, nil
}

func (o *Order) ID() uint                    { return o.id }
func (o *Order) OrderNo() string             { return o.orderNo }
func (o *Order) SubscriptionID() uint        { return o.subscriptionID }
func (o *Order) UserID() uint                { return o.userID }
func (o *Order) Status() Status              { return o.status }
func (o *Order) Gateway() ledger.GatewayName { return o.gateway }
func (o *Order) Amount() ledger.Money        { return o.amount }
func (o *Order) Reference() string           { return o.reference }
func (o *Order) TransactionID() string       { return o.transactionID }
func (o *Order) CreatedAt() time.Time        { return o.createdAt }
func (o *Order) IsProvisioned() bool         { return o.status == StatusProvisioned }

// Metadata returns a copy of the gateway metadata.
func (o *Order) Metadata() map[string]any {
	return cloneMetadata(o.metadata)
}

func (o *Order) SetID(orderID uint) error {
	if o.id != 0 {
		return fmt.Errorf("order ID is already set")
	}
	o.id = orderID
	return nil
}

func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
