package ledger

import (
	"fmt"
	"strings"
)

// GatewayName identifies the payment provider that produced an order.
type GatewayName string

const (
	GatewayPaystack GatewayName = "paystack"
	GatewayStripe   GatewayName = "stripe"
	// GatewayMock is the in-process gateway used in development.
	GatewayMock GatewayName = "mock"
)

var knownGateways = map[GatewayName]bool{
	GatewayPaystack: true,
	GatewayStripe:   true,
	GatewayMock:     true,
}

func ParseGatewayName(s string) (GatewayName, error) {
	g := GatewayName(strings.ToLower(strings.TrimSpace(s)))
	if !knownGateways[g] {
		return "", fmt.Errorf("%w: %q", ErrUnknownGateway, s)
	}
	return g, nil
}

func (g GatewayName) String() string {
	return string(g)
}
