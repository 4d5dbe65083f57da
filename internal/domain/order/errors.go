package order

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrNoPreviousOrder means the subscription has no Provisioned order to
	// take a stored payment method from.
	ErrNoPreviousOrder = errors.New("no previous provisioned order")
	// ErrNoStoredAuthorization means the latest Provisioned order carries no
	// reusable authorization for its gateway.
	ErrNoStoredAuthorization = errors.New("no stored payment authorization")
	ErrInvalidOrder          = errors.New("invalid order")
)
