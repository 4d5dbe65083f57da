package ledger

import "fmt"

// AuthorizationToken is a provider's reusable reference to a stored payment
// method. Which fields are meaningful depends on Gateway.
type AuthorizationToken struct {
	Gateway GatewayName

	// Paystack
	AuthorizationCode string
	Email             string

	// Stripe
	CustomerID      string
	PaymentMethodID string
	PaymentIntentID string
}

// Validate checks that the fields the gateway needs for an off-session
// charge are present.
func (t AuthorizationToken) Validate() error {
	switch t.Gateway {
	case GatewayPaystack:
		if t.AuthorizationCode == "" {
			return fmt.Errorf("%w: paystack authorization_code missing", ErrIncompleteAuthToken)
		}
	case GatewayStripe:
		if t.CustomerID == "" {
			return fmt.Errorf("%w: stripe customer missing", ErrIncompleteAuthToken)
		}
		if t.PaymentMethodID == "" && t.PaymentIntentID == "" {
			return fmt.Errorf("%w: stripe payment method missing", ErrIncompleteAuthToken)
		}
	case GatewayMock:
		if t.AuthorizationCode == "" {
			return fmt.Errorf("%w: mock authorization_code missing", ErrIncompleteAuthToken)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGateway, t.Gateway)
	}
	return nil
}

// String never prints the secret parts of the token.
func (t AuthorizationToken) String() string {
	return fmt.Sprintf("AuthorizationToken{gateway=%s}", t.Gateway)
}
