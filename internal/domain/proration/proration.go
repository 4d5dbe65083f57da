// Package proration computes the credit and charge for switching a
// subscription from one plan to another part way through a service period.
package proration

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/billing/internal/domain/ledger"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
)

var ErrInvalidPlanTerms = errors.New("plan duration must be positive")

// Plan is the part of a catalog plan proration needs.
type Plan interface {
	Price() ledger.Money
	DurationDays() int
}

type Input struct {
	CurrentPlan Plan
	NewPlan     Plan
	Now         time.Time
	ExpiresAt   time.Time
	Currency    ledger.Currency
}

// Result is the outcome of a proration. Exactly one of AmountDue and
// CreditToApply can be positive.
type Result struct {
	DaysRemaining   int
	UnusedCredit    ledger.Money
	ProratedCostNew ledger.Money
	// Net is ProratedCostNew minus UnusedCredit; negative means the customer
	// is owed credit.
	Net           decimal.Decimal
	AmountDue     ledger.Money
	CreditToApply ledger.Money
	Type          vo.ChangeType
}

// Calculate is deterministic for a given input and performs no I/O. Daily
// rates are kept at full precision; only the two prorated amounts are
// rounded, half-up, to the currency's minor unit.
func Calculate(in Input) (*Result, error) {
	if in.CurrentPlan == nil || in.NewPlan == nil {
		return nil, fmt.Errorf("proration: both plans are required")
	}
	if in.CurrentPlan.DurationDays() <= 0 || in.NewPlan.DurationDays() <= 0 {
		return nil, ErrInvalidPlanTerms
	}
	cur := in.Currency
	currentPrice, newPrice := in.CurrentPlan.Price(), in.NewPlan.Price()
	if currentPrice.Currency() != cur || newPrice.Currency() != cur {
		return nil, fmt.Errorf("%w: plans priced in %s and %s, subscription in %s",
			ledger.ErrCurrencyMismatch, currentPrice.Currency(), newPrice.Currency(), cur)
	}

	changeType := vo.ChangeTypeDowngrade
	if newPrice.GreaterThan(currentPrice) {
		changeType = vo.ChangeTypeUpgrade
	}

	days := ledger.CeilDays(in.ExpiresAt.Sub(in.Now))
	if days == 0 {
		return &Result{
			UnusedCredit:    ledger.Zero(cur),
			ProratedCostNew: newPrice,
			Net:             newPrice.Decimal(),
			AmountDue:       newPrice,
			CreditToApply:   ledger.Zero(cur),
			Type:            changeType,
		}, nil
	}

	unused, err := prorate(currentPrice, in.CurrentPlan.DurationDays(), days)
	if err != nil {
		return nil, err
	}
	cost, err := prorate(newPrice, in.NewPlan.DurationDays(), days)
	if err != nil {
		return nil, err
	}

	result := &Result{
		DaysRemaining:   days,
		UnusedCredit:    unused,
		ProratedCostNew: cost,
		Net:             cost.Decimal().Sub(unused.Decimal()),
		AmountDue:       ledger.Zero(cur),
		CreditToApply:   ledger.Zero(cur),
		Type:            changeType,
	}
	if result.Net.IsPositive() {
		result.AmountDue, err = ledger.FromDecimal(result.Net, cur)
	} else {
		result.CreditToApply, err = ledger.FromDecimal(result.Net.Neg(), cur)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// prorate returns price / durationDays × days. Multiplying first keeps the
// intermediate exact.
func prorate(price ledger.Money, durationDays, days int) (ledger.Money, error) {
	amount := price.Decimal().
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(int64(durationDays)))
	return ledger.FromDecimal(amount, price.Currency())
}
