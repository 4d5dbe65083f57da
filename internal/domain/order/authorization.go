package order

import (
	"fmt"

	"github.com/orris-inc/billing/internal/domain/ledger"
)

// Gateway metadata keys as the providers return them on a successful charge.
const (
	MetaAuthorization     = "authorization"
	MetaAuthorizationCode = "authorization_code"
	MetaReusable          = "reusable"
	MetaCustomer          = "customer"
	MetaEmail             = "email"
	MetaPaymentMethod     = "payment_method"
	MetaPaymentIntent     = "payment_intent"
)

// AuthorizationToken extracts the reusable payment reference stored on a
// provisioned order.
func (o *Order) AuthorizationToken() (ledger.AuthorizationToken, error) {
	if !o.IsProvisioned() {
		return ledger.AuthorizationToken{}, fmt.Errorf("%w: order %s is %s", ErrNoStoredAuthorization, o.orderNo, o.status)
	}

	var token ledger.AuthorizationToken
	switch o.gateway {
	case ledger.GatewayPaystack:
		token = paystackToken(o.metadata)
	case ledger.GatewayStripe:
		token = stripeToken(o.metadata)
	case ledger.GatewayMock:
		token = ledger.AuthorizationToken{
			Gateway:           ledger.GatewayMock,
			AuthorizationCode: stringAt(o.metadata, MetaAuthorizationCode),
		}
	default:
		return ledger.AuthorizationToken{}, fmt.Errorf("%w: %w", ErrNoStoredAuthorization, ledger.ErrUnknownGateway)
	}

	if err := token.Validate(); err != nil {
		return ledger.AuthorizationToken{}, fmt.Errorf("%w: %w", ErrNoStoredAuthorization, err)
	}
	return token, nil
}

// paystackToken reads authorization.authorization_code. An authorization
// Paystack flagged as not reusable yields an empty code.
func paystackToken(meta map[string]any) ledger.AuthorizationToken {
	token := ledger.AuthorizationToken{Gateway: ledger.GatewayPaystack}
	auth, _ := meta[MetaAuthorization].(map[string]any)
	if reusable, ok := auth[MetaReusable].(bool); ok && !reusable {
		return token
	}
	token.AuthorizationCode = stringAt(auth, MetaAuthorizationCode)
	if customer, ok := meta[MetaCustomer].(map[string]any); ok {
		token.Email = stringAt(customer, MetaEmail)
	}
	return token
}

// stripeToken accepts both the flat form {"customer": "cus_..."} and the
// expanded object form {"customer": {"id": "cus_..."}}.
func stripeToken(meta map[string]any) ledger.AuthorizationToken {
	return ledger.AuthorizationToken{
		Gateway:         ledger.GatewayStripe,
		CustomerID:      idAt(meta, MetaCustomer),
		PaymentMethodID: idAt(meta, MetaPaymentMethod),
		PaymentIntentID: idAt(meta, MetaPaymentIntent),
	}
}

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func idAt(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case map[string]any:
		return stringAt(v, "id")
	}
	return ""
}
