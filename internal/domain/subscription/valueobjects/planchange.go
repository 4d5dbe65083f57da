package valueobjects

import "fmt"

// ChangeType classifies a plan change by price direction. Equal prices count
// as a downgrade because nothing is charged.
type ChangeType string

const (
	ChangeTypeUpgrade   ChangeType = "upgrade"
	ChangeTypeDowngrade ChangeType = "downgrade"
)

// ExecutionType says when the swap takes effect.
type ExecutionType string

const (
	ExecutionImmediate ExecutionType = "immediate"
	ExecutionScheduled ExecutionType = "scheduled"
)

type PlanChangeStatus string

const (
	PlanChangeScheduled PlanChangeStatus = "scheduled"
	PlanChangeCompleted PlanChangeStatus = "completed"
	PlanChangeCancelled PlanChangeStatus = "cancelled"
)

func ParseChangeType(s string) (ChangeType, error) {
	switch t := ChangeType(s); t {
	case ChangeTypeUpgrade, ChangeTypeDowngrade:
		return t, nil
	}
	return "", fmt.Errorf("invalid change type: %q", s)
}

func ParseExecutionType(s string) (ExecutionType, error) {
	switch t := ExecutionType(s); t {
	case ExecutionImmediate, ExecutionScheduled:
		return t, nil
	}
	return "", fmt.Errorf("invalid execution type: %q", s)
}

func ParsePlanChangeStatus(s string) (PlanChangeStatus, error) {
	switch st := PlanChangeStatus(s); st {
	case PlanChangeScheduled, PlanChangeCompleted, PlanChangeCancelled:
		return st, nil
	}
	return "", fmt.Errorf("invalid plan change status: %q", s)
}
