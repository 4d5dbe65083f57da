package paymentgateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/orris-inc/billing/internal/domain/ledger"
)

// DeclineCodePrefix makes the mock gateway decline any authorization code
// that starts with it.
const DeclineCodePrefix = "mock_decline"

// MockGateway is an in-process gateway for development and tests. It records
// every charge it receives.
type MockGateway struct {
	mu      sync.Mutex
	charges []ChargeRequest
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Name() ledger.GatewayName {
	return ledger.GatewayMock
}

func (m *MockGateway) ChargeRecurring(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.charges = append(m.charges, req)
	m.mu.Unlock()

	code := req.Token.AuthorizationCode
	if strings.HasPrefix(code, DeclineCodePrefix) {
		return &ChargeResult{
			Success:       false,
			Reference:     req.Reference,
			FailureReason: "declined by mock gateway",
			RawResponse:   map[string]any{"status": "failed"},
		}, nil
	}

	return &ChargeResult{
		Success:       true,
		Reference:     req.Reference,
		TransactionID: fmt.Sprintf("MOCK_%s", uuid.NewString()),
		RawResponse: map[string]any{
			"status":             "success",
			"authorization_code": code,
			"amount":             req.Amount.Minor(),
			"currency":           req.Amount.Currency().String(),
		},
	}, nil
}

// Charges returns the requests received so far.
func (m *MockGateway) Charges() []ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChargeRequest, len(m.charges))
	copy(out, m.charges)
	return out
}
