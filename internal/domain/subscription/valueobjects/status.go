package valueobjects

import "fmt"

type SubscriptionStatus string

const (
	StatusPending   SubscriptionStatus = "pending"
	StatusActive    SubscriptionStatus = "active"
	StatusSuspended SubscriptionStatus = "suspended"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

var transitions = map[SubscriptionStatus][]SubscriptionStatus{
	StatusPending:   {StatusActive},
	StatusActive:    {StatusSuspended, StatusExpired, StatusCancelled},
	StatusSuspended: {StatusActive, StatusCancelled},
	StatusCancelled: {},
	StatusExpired:   {},
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether target is reachable in one step. Staying in
// the same status is handled by the aggregate as a no-op, not here.
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	status := SubscriptionStatus(s)
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("invalid subscription status: %q", s)
	}
	return status, nil
}
