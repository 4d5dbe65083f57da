package usecases

import (
	"errors"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/order"
	"github.com/orris-inc/billing/internal/domain/subscription"
	apperrors "github.com/orris-inc/billing/internal/shared/errors"
)

// ErrChargeDeclined is returned when the gateway refused a charge made on
// behalf of a user-facing request.
var ErrChargeDeclined = errors.New("charge declined")

// toAppError maps domain failures to client-facing errors. Errors that are
// already AppErrors, and unknown errors, pass through unchanged.
func toAppError(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}

	var rejected *subscription.PlanChangeRejectedError
	switch {
	case errors.As(err, &rejected):
		return apperrors.NewPreconditionError(rejected.Reason).WithCause(err)
	case errors.Is(err, subscription.ErrSamePlan),
		errors.Is(err, subscription.ErrPlanInactive),
		errors.Is(err, ledger.ErrCurrencyMismatch),
		errors.Is(err, ledger.ErrUnknownGateway):
		return apperrors.NewValidationError(err.Error()).WithCause(err)
	case errors.Is(err, subscription.ErrChangeNotCancellable),
		errors.Is(err, subscription.ErrChangeNotPending):
		return apperrors.NewConflictError(err.Error()).WithCause(err)
	case errors.Is(err, order.ErrNoPreviousOrder),
		errors.Is(err, order.ErrNoStoredAuthorization):
		return apperrors.NewPreconditionError("no stored payment method", err.Error()).WithCause(err)
	case errors.Is(err, paymentgateway.ErrChargePending):
		return apperrors.NewConflictError("payment is still processing at the gateway", err.Error()).WithCause(err)
	case errors.Is(err, ErrChargeDeclined):
		return apperrors.NewPaymentRequiredError("payment was declined", err.Error()).WithCause(err)
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return apperrors.NewNotFoundError("subscription not found").WithCause(err)
	case errors.Is(err, subscription.ErrPlanNotFound):
		return apperrors.NewNotFoundError("plan not found").WithCause(err)
	case errors.Is(err, subscription.ErrPlanChangeNotFound):
		return apperrors.NewNotFoundError("plan change not found").WithCause(err)
	}
	return err
}
