package paymentgateway

import (
	"fmt"
	"sort"

	"github.com/orris-inc/billing/internal/domain/ledger"
)

// Registry resolves gateways by the name stored on an order.
type Registry struct {
	gateways map[ledger.GatewayName]RecurringGateway
}

func NewRegistry(gateways ...RecurringGateway) *Registry {
	r := &Registry{gateways: make(map[ledger.GatewayName]RecurringGateway, len(gateways))}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

// Register adds g, replacing any gateway with the same name.
func (r *Registry) Register(g RecurringGateway) {
	r.gateways[g.Name()] = g
}

func (r *Registry) Get(name ledger.GatewayName) (RecurringGateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not configured", ledger.ErrUnknownGateway, name)
	}
	return g, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
