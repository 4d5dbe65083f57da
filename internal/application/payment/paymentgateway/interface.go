package paymentgateway

import (
	"context"
	"errors"

	"github.com/orris-inc/billing/internal/domain/ledger"
)

// RecurringGateway charges a stored authorization without the customer
// present.
//
// A declined charge is reported as ChargeResult{Success: false} with a nil
// error. A non-nil error means the outcome is unknown (timeout, transport
// failure, malformed response); callers treat both as a failed renewal and
// never retry within the same run. A charge the provider accepted but has not
// settled is an error wrapping ErrChargePending, which is never a failure.
type RecurringGateway interface {
	Name() ledger.GatewayName
	ChargeRecurring(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ErrChargePending means the provider still holds the charge and may settle
// it later. Charging the same period again could take the money twice.
var ErrChargePending = errors.New("charge is pending at the gateway")

// ChargeRequest contains the data needed for an off-session charge.
type ChargeRequest struct {
	Token ledger.AuthorizationToken
	// Amount is in the smallest currency unit of its currency.
	Amount ledger.Money
	// Reference is our idempotency key for this attempt.
	Reference string
	// Email is the subscriber's address, used when the token carries none.
	Email    string
	Metadata map[string]string
}

type ChargeResult struct {
	Success       bool
	Reference     string
	TransactionID string
	FailureReason string
	// RawResponse is stored as the new order's gateway metadata, so it must
	// carry the reusable authorization for the next renewal.
	RawResponse map[string]any
}
