package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/shared/logger"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		URL:               stripeapi.String(server.URL),
		MaxNetworkRetries: stripeapi.Int64(0),
	})
	return NewGatewayWithBackend("sk_test_123", backend, logger.NewNopLogger())
}

func chargeRequest() paymentgateway.ChargeRequest {
	return paymentgateway.ChargeRequest{
		Token: ledger.AuthorizationToken{
			Gateway:         ledger.GatewayStripe,
			CustomerID:      "cus_123",
			PaymentMethodID: "pm_123",
		},
		Amount:    ledger.MustMoney(2500, ledger.MustParseCurrency("USD")),
		Reference: "ren_42",
	}
}

func TestGateway_ChargeSucceeded(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "2500", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))
		assert.Equal(t, "pm_123", r.PostForm.Get("payment_method"))
		assert.Equal(t, "true", r.PostForm.Get("off_session"))
		assert.Equal(t, "true", r.PostForm.Get("confirm"))
		assert.Equal(t, "ren_42", r.Header.Get("Idempotency-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "pi_1", "object": "payment_intent", "status": "succeeded", "amount": 2500, "currency": "usd"}`))
	})

	result, err := gateway.ChargeRecurring(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "pi_1", result.TransactionID)
	assert.Equal(t, "cus_123", result.RawResponse["customer"])
	assert.Equal(t, "pm_123", result.RawResponse["payment_method"])
}

func TestGateway_CardDeclined(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error": {"type": "card_error", "code": "card_declined", "decline_code": "insufficient_funds", "message": "Your card has insufficient funds."}}`))
	})

	result, err := gateway.ChargeRecurring(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Your card has insufficient funds.", result.FailureReason)
	assert.Equal(t, "insufficient_funds", result.RawResponse["decline_code"])
}

func TestGateway_ProcessingIntentIsPending(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "pi_2", "object": "payment_intent", "status": "processing", "amount": 2500, "currency": "usd"}`))
	})

	result, err := gateway.ChargeRecurring(context.Background(), chargeRequest())
	require.ErrorIs(t, err, paymentgateway.ErrChargePending)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "pi_2")
}

func TestGateway_APIErrorIsReturned(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "Invalid API Key provided"}}`))
	})

	_, err := gateway.ChargeRecurring(context.Background(), chargeRequest())
	assert.Error(t, err)
}

func TestGateway_ResolvesPaymentMethodFromIntent(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/payment_intents/pi_original":
			_, _ = w.Write([]byte(`{"id": "pi_original", "object": "payment_intent", "status": "succeeded", "payment_method": "pm_saved"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "pm_saved", r.PostForm.Get("payment_method"))
			_, _ = w.Write([]byte(`{"id": "pi_2", "object": "payment_intent", "status": "requires_action"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	req := chargeRequest()
	req.Token.PaymentMethodID = ""
	req.Token.PaymentIntentID = "pi_original"

	result, err := gateway.ChargeRecurring(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "payment intent requires_action", result.FailureReason)
	assert.Equal(t, "pm_saved", result.RawResponse["payment_method"])
}
