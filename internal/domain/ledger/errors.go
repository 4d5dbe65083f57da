package ledger

import "errors"

var (
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrInvalidPeriod       = errors.New("billing period end must be after start")
	ErrUnknownGateway      = errors.New("unknown payment gateway")
	ErrIncompleteAuthToken = errors.New("authorization token is incomplete")
)
