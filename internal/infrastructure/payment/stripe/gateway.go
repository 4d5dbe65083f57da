// Package stripe charges saved Stripe payment methods off-session.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/order"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// Gateway implements paymentgateway.RecurringGateway with confirmed,
// off-session PaymentIntents.
type Gateway struct {
	intents *paymentintent.Client
	logger  logger.Interface
}

// NewGateway uses the default Stripe API backend.
func NewGateway(secretKey string, logger logger.Interface) *Gateway {
	return NewGatewayWithBackend(secretKey, stripeapi.GetBackend(stripeapi.APIBackend), logger)
}

// NewGatewayWithBackend is used by tests to point the client at a fake API.
func NewGatewayWithBackend(secretKey string, backend stripeapi.Backend, logger logger.Interface) *Gateway {
	return &Gateway{
		intents: &paymentintent.Client{B: backend, Key: secretKey},
		logger:  logger,
	}
}

var _ paymentgateway.RecurringGateway = (*Gateway)(nil)

func (g *Gateway) Name() ledger.GatewayName {
	return ledger.GatewayStripe
}

// ChargeRecurring creates and confirms a PaymentIntent. Card errors are
// declines; every other Stripe error is returned.
func (g *Gateway) ChargeRecurring(ctx context.Context, req paymentgateway.ChargeRequest) (*paymentgateway.ChargeResult, error) {
	paymentMethodID, err := g.resolvePaymentMethod(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	params := &stripeapi.PaymentIntentParams{
		Amount:        stripeapi.Int64(req.Amount.Minor()),
		Currency:      stripeapi.String(strings.ToLower(req.Amount.Currency().String())),
		Customer:      stripeapi.String(req.Token.CustomerID),
		PaymentMethod: stripeapi.String(paymentMethodID),
		OffSession:    stripeapi.Bool(true),
		Confirm:       stripeapi.Bool(true),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Reference)
	params.AddMetadata("reference", req.Reference)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := g.intents.New(params)
	if err != nil {
		var stripeErr *stripeapi.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripeapi.ErrorTypeCard {
			g.logger.Warnw("stripe declined charge",
				"reference", req.Reference,
				"code", stripeErr.Code,
				"decline_code", stripeErr.DeclineCode,
			)
			return &paymentgateway.ChargeResult{
				Success:       false,
				Reference:     req.Reference,
				FailureReason: stripeErr.Msg,
				RawResponse: map[string]any{
					"status":       "failed",
					"code":         string(stripeErr.Code),
					"decline_code": string(stripeErr.DeclineCode),
				},
			}, nil
		}
		return nil, fmt.Errorf("stripe charge %s: %w", req.Reference, err)
	}

	if intent.Status == stripeapi.PaymentIntentStatusProcessing {
		g.logger.Warnw("stripe charge not settled",
			"reference", req.Reference,
			"payment_intent", intent.ID,
		)
		return nil, fmt.Errorf("stripe charge %s: payment intent %s is processing: %w",
			req.Reference, intent.ID, paymentgateway.ErrChargePending)
	}

	result := &paymentgateway.ChargeResult{
		Success:       intent.Status == stripeapi.PaymentIntentStatusSucceeded,
		Reference:     req.Reference,
		TransactionID: intent.ID,
		RawResponse: map[string]any{
			"status":                string(intent.Status),
			order.MetaCustomer:      req.Token.CustomerID,
			order.MetaPaymentMethod: paymentMethodID,
			order.MetaPaymentIntent: intent.ID,
		},
	}
	if !result.Success {
		result.FailureReason = "payment intent " + string(intent.Status)
	}

	g.logger.Infow("stripe charge completed",
		"reference", req.Reference,
		"payment_intent", intent.ID,
		"status", intent.Status,
	)
	return result, nil
}

// resolvePaymentMethod falls back to the method attached to the original
// PaymentIntent when the order only stored the intent.
func (g *Gateway) resolvePaymentMethod(ctx context.Context, token ledger.AuthorizationToken) (string, error) {
	if token.PaymentMethodID != "" {
		return token.PaymentMethodID, nil
	}

	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx
	intent, err := g.intents.Get(token.PaymentIntentID, params)
	if err != nil {
		return "", fmt.Errorf("failed to load payment intent %s: %w", token.PaymentIntentID, err)
	}
	if intent.PaymentMethod == nil || intent.PaymentMethod.ID == "" {
		return "", fmt.Errorf("payment intent %s has no payment method", token.PaymentIntentID)
	}
	return intent.PaymentMethod.ID, nil
}
