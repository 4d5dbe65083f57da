package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrPlanNotFound            = errors.New("plan not found")
	ErrPlanInactive            = errors.New("plan is not active")
	ErrInvalidPlan             = errors.New("invalid plan")
	ErrSamePlan                = errors.New("subscription is already on this plan")
	ErrCannotChangePlan        = errors.New("cannot change plan")
	ErrPlanChangeNotFound      = errors.New("plan change not found")
	ErrChangeNotCancellable    = errors.New("plan change is not cancellable")
	ErrChangeNotPending        = errors.New("plan change is not pending")
	ErrWarningAlreadySent      = errors.New("suspension warning already sent")
	ErrNoPaymentFailure        = errors.New("no unresolved payment failure")
	ErrInvalidPaymentHealth    = errors.New("invalid payment health")
	ErrInvalidScheduledChange  = errors.New("invalid scheduled plan change")
)

func ErrInvalidTransition(from, to string) error {
	return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, from, to)
}

// PlanChangeRejectedError carries the customer-facing reason a subscription
// may not change plan. It matches ErrCannotChangePlan with errors.Is.
type PlanChangeRejectedError struct {
	Reason string
}

func (e *PlanChangeRejectedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCannotChangePlan, e.Reason)
}

func (e *PlanChangeRejectedError) Unwrap() error {
	return ErrCannotChangePlan
}

const (
	ReasonNotActive = "subscription is not active"
	ReasonExpired   = "subscription is expired"
)
