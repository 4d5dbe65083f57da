package dto

import (
	"time"

	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/proration"
	"github.com/orris-inc/billing/internal/domain/subscription"
)

// MoneyDTO carries both the display amount and the exact minor-unit value.
type MoneyDTO struct {
	Amount   string `json:"amount"`
	Minor    int64  `json:"minor"`
	Currency string `json:"currency"`
}

type PlanChangeDTO struct {
	SID             string     `json:"id"`
	SubscriptionSID string     `json:"subscription_id"`
	FromPlanSID     string     `json:"from_plan_id"`
	ToPlanSID       string     `json:"to_plan_id"`
	Type            string     `json:"type"`
	ExecutionType   string     `json:"execution_type"`
	Status          string     `json:"status"`
	CreditAmount    MoneyDTO   `json:"credit_amount"`
	AmountDue       MoneyDTO   `json:"amount_due"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type ProrationDTO struct {
	DaysRemaining   int      `json:"days_remaining"`
	UnusedCredit    MoneyDTO `json:"unused_credit"`
	ProratedCostNew MoneyDTO `json:"prorated_cost_new"`
	// Net is signed; negative means credit is owed to the customer.
	Net           string   `json:"net"`
	AmountDue     MoneyDTO `json:"amount_due"`
	CreditToApply MoneyDTO `json:"credit_to_apply"`
	Type          string   `json:"type"`
}

// ImmediateChangeDTO is the outcome of an immediate plan change request.
// When RequiresPayment is set the change stays pending until it is
// completed with a payment.
type ImmediateChangeDTO struct {
	RequiresPayment bool           `json:"requires_payment"`
	AmountDue       MoneyDTO       `json:"amount_due"`
	Gateway         string         `json:"gateway,omitempty"`
	PlanChange      *PlanChangeDTO `json:"plan_change"`
	Proration       *ProrationDTO  `json:"proration"`
}

func ToMoneyDTO(m ledger.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   m.Decimal().StringFixed(m.Currency().MinorUnits()),
		Minor:    m.Minor(),
		Currency: m.Currency().String(),
	}
}

func ToPlanChangeDTO(change *subscription.PlanChange, subscriptionSID, fromPlanSID, toPlanSID string) *PlanChangeDTO {
	if change == nil {
		return nil
	}
	return &PlanChangeDTO{
		SID:             change.SID(),
		SubscriptionSID: subscriptionSID,
		FromPlanSID:     fromPlanSID,
		ToPlanSID:       toPlanSID,
		Type:            string(change.ChangeType()),
		ExecutionType:   string(change.ExecutionType()),
		Status:          string(change.Status()),
		CreditAmount:    ToMoneyDTO(change.CreditAmount()),
		AmountDue:       ToMoneyDTO(change.AmountDue()),
		ScheduledAt:     change.ScheduledAt(),
		CompletedAt:     change.CompletedAt(),
		CancelledAt:     change.CancelledAt(),
		CreatedAt:       change.CreatedAt(),
	}
}

func ToProrationDTO(r *proration.Result) *ProrationDTO {
	if r == nil {
		return nil
	}
	return &ProrationDTO{
		DaysRemaining:   r.DaysRemaining,
		UnusedCredit:    ToMoneyDTO(r.UnusedCredit),
		ProratedCostNew: ToMoneyDTO(r.ProratedCostNew),
		Net:             r.Net.StringFixed(r.AmountDue.Currency().MinorUnits()),
		AmountDue:       ToMoneyDTO(r.AmountDue),
		CreditToApply:   ToMoneyDTO(r.CreditToApply),
		Type:            string(r.Type),
	}
}
