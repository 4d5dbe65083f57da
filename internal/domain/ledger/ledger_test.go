package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_MinorUnits(t *testing.T) {
	assert.Equal(t, int32(2), MustParseCurrency("usd").MinorUnits())
	assert.Equal(t, int32(2), MustParseCurrency("GHS").MinorUnits())
	assert.Equal(t, int32(0), MustParseCurrency("JPY").MinorUnits())

	_, err := ParseCurrency("XX")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestFromDecimal_RoundsHalfUp(t *testing.T) {
	usd := MustParseCurrency("USD")

	tests := []struct {
		in   string
		want int64
	}{
		{"15", 1500},
		{"0.333333", 33},
		{"1.005", 101},
		{"2.004999", 200},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := FromDecimal(decimal.RequireFromString(tt.in), usd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Minor())
		})
	}

	jpy, err := FromDecimal(decimal.RequireFromString("99.5"), MustParseCurrency("JPY"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), jpy.Minor())
}

func TestMoney_Arithmetic(t *testing.T) {
	usd := MustParseCurrency("USD")
	ghs := MustParseCurrency("GHS")

	sum, err := MustMoney(1500, usd).Add(MustMoney(250, usd))
	require.NoError(t, err)
	assert.Equal(t, int64(1750), sum.Minor())

	_, err = MustMoney(100, usd).Sub(MustMoney(101, usd))
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = MustMoney(100, usd).Add(MustMoney(100, ghs))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	assert.Equal(t, "15.00 USD", MustMoney(1500, usd).String())
	assert.True(t, MustMoney(1500, usd).Decimal().Equal(decimal.NewFromInt(15)))
	assert.Equal(t, int64(100), MustMoney(300, usd).Min(MustMoney(100, usd)).Minor())

	_, err = NewMoney(-1, usd)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestBillingPeriod_DaysRemaining(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := PeriodFrom(start, 30)

	assert.Equal(t, 30, p.DaysRemaining(start))
	assert.Equal(t, 15, p.DaysRemaining(start.Add(15*day)))
	assert.Equal(t, 1, p.DaysRemaining(p.End.Add(-time.Minute)), "partial day rounds up")
	assert.Equal(t, 0, p.DaysRemaining(p.End))
	assert.Equal(t, 0, p.DaysRemaining(p.End.Add(48*time.Hour)))
	assert.True(t, p.Contains(start))
	assert.False(t, p.Contains(p.End))

	_, err := NewBillingPeriod(start, start)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestAuthorizationToken_Validate(t *testing.T) {
	tests := []struct {
		name    string
		token   AuthorizationToken
		wantErr error
	}{
		{"paystack ok", AuthorizationToken{Gateway: GatewayPaystack, AuthorizationCode: "AUTH_x"}, nil},
		{"paystack missing code", AuthorizationToken{Gateway: GatewayPaystack}, ErrIncompleteAuthToken},
		{"stripe with method", AuthorizationToken{Gateway: GatewayStripe, CustomerID: "cus_1", PaymentMethodID: "pm_1"}, nil},
		{"stripe with intent only", AuthorizationToken{Gateway: GatewayStripe, CustomerID: "cus_1", PaymentIntentID: "pi_1"}, nil},
		{"stripe missing customer", AuthorizationToken{Gateway: GatewayStripe, PaymentMethodID: "pm_1"}, ErrIncompleteAuthToken},
		{"unknown gateway", AuthorizationToken{Gateway: "paypal"}, ErrUnknownGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.token.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.NotContains(t, AuthorizationToken{Gateway: GatewayPaystack, AuthorizationCode: "AUTH_secret"}.String(), "AUTH_secret")
}
