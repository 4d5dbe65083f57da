// Package paystack charges stored Paystack authorizations.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/shared/logger"
)

const (
	DefaultBaseURL = "https://api.paystack.co"

	chargeAuthorizationPath = "/transaction/charge_authorization"
	// Maximum response body size accepted from the API (1MB)
	maxResponseSize = 1 << 20

	statusSuccess   = "success"
	statusFailed    = "failed"
	statusAbandoned = "abandoned"
	statusReversed  = "reversed"
)

type chargeAuthorizationRequest struct {
	AuthorizationCode string            `json:"authorization_code"`
	Email             string            `json:"email"`
	Amount            int64             `json:"amount"`
	Currency          string            `json:"currency"`
	Reference         string            `json:"reference"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type transaction struct {
	ID              int64  `json:"id"`
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	GatewayResponse string `json:"gateway_response"`
}

// Gateway implements paymentgateway.RecurringGateway against the Paystack
// charge_authorization endpoint.
type Gateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     logger.Interface
}

func NewGateway(secretKey, baseURL string, timeout time.Duration, logger logger.Interface) *Gateway {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Gateway{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ paymentgateway.RecurringGateway = (*Gateway)(nil)

func (g *Gateway) Name() ledger.GatewayName {
	return ledger.GatewayPaystack
}

// ChargeRecurring posts one charge_authorization call. status=false below
// HTTP 500 is a decline. Any other answer that does not decode into a
// transaction is an error.
func (g *Gateway) ChargeRecurring(ctx context.Context, req paymentgateway.ChargeRequest) (*paymentgateway.ChargeResult, error) {
	email := req.Token.Email
	if email == "" {
		email = req.Email
	}
	if email == "" {
		return nil, fmt.Errorf("paystack charge %s: customer email is required", req.Reference)
	}

	body, err := json.Marshal(chargeAuthorizationRequest{
		AuthorizationCode: req.Token.AuthorizationCode,
		Email:             email,
		Amount:            req.Amount.Minor(),
		Currency:          req.Amount.Currency().String(),
		Reference:         req.Reference,
		Metadata:          req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+chargeAuthorizationPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paystack charge %s: %w", req.Reference, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&env); err != nil {
		return nil, fmt.Errorf("paystack charge %s: failed to decode response (http %d): %w", req.Reference, resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("paystack charge %s: unexpected status code %d: %s", req.Reference, resp.StatusCode, env.Message)
	}

	if !env.Status {
		g.logger.Warnw("paystack rejected charge",
			"reference", req.Reference,
			"http_status", resp.StatusCode,
			"message", env.Message,
		)
		return &paymentgateway.ChargeResult{
			Success:       false,
			Reference:     req.Reference,
			FailureReason: env.Message,
			RawResponse:   map[string]any{"status": false, "message": env.Message},
		}, nil
	}

	var txn transaction
	var raw map[string]any
	if err := json.Unmarshal(env.Data, &txn); err != nil {
		return nil, fmt.Errorf("paystack charge %s: failed to decode transaction: %w", req.Reference, err)
	}
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, fmt.Errorf("paystack charge %s: failed to decode transaction: %w", req.Reference, err)
	}

	switch txn.Status {
	case statusSuccess, statusFailed, statusAbandoned, statusReversed:
	default:
		// pending, ongoing, send_otp and the like: Paystack may still settle it.
		g.logger.Warnw("paystack charge not settled",
			"reference", req.Reference,
			"transaction_id", txn.ID,
			"status", txn.Status,
		)
		return nil, fmt.Errorf("paystack charge %s: transaction is %q: %w",
			req.Reference, txn.Status, paymentgateway.ErrChargePending)
	}

	result := &paymentgateway.ChargeResult{
		Success:     txn.Status == statusSuccess,
		Reference:   txn.Reference,
		RawResponse: raw,
	}
	if result.Reference == "" {
		result.Reference = req.Reference
	}
	if txn.ID != 0 {
		result.TransactionID = fmt.Sprintf("%d", txn.ID)
	}
	if !result.Success {
		result.FailureReason = txn.GatewayResponse
		if result.FailureReason == "" {
			result.FailureReason = "charge " + txn.Status
		}
	}

	g.logger.Infow("paystack charge completed",
		"reference", result.Reference,
		"success", result.Success,
		"transaction_id", result.TransactionID,
	)
	return result, nil
}
