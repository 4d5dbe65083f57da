package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
)

func sampleData(kind usecases.NotificationKind) map[string]any {
	base := map[string]any{
		"name":             "Ama",
		"subscription_sid": "sub_123",
	}
	switch kind {
	case usecases.NotificationRenewed:
		base["plan_name"] = "Pro"
		base["amount"] = "$10.00"
		base["credit_used"] = "$0.00"
		base["expires_at"] = "2026-11-17"
	case usecases.NotificationRenewalFailed:
		base["plan_name"] = "Pro"
		base["amount"] = "$10.00"
		base["reason"] = "insufficient funds"
		base["failure_count"] = 2
		base["auto_renew_disabled"] = false
		base["expires_at"] = "2026-11-17"
	case usecases.NotificationSuspensionWarning:
		base["plan_name"] = "Pro"
		base["suspends_at"] = "2026-11-17"
		base["failure_count"] = 2
	case usecases.NotificationSubscriptionSuspended:
		base["expired_at"] = "2026-11-17"
	case usecases.NotificationPlanChanged:
		base["from_plan"] = "Basic"
		base["to_plan"] = "Pro"
		base["change_type"] = "upgrade"
		base["credit_amount"] = "$4.00"
		base["amount_due"] = "$6.00"
		base["credit_balance"] = "$0.00"
		base["expires_at"] = "2026-11-17"
	}
	return base
}

func TestDefaultCatalogue_RendersEveryKind(t *testing.T) {
	c, err := DefaultCatalogue()
	require.NoError(t, err)

	kinds := []usecases.NotificationKind{
		usecases.NotificationRenewed,
		usecases.NotificationRenewalFailed,
		usecases.NotificationSuspensionWarning,
		usecases.NotificationSubscriptionSuspended,
		usecases.NotificationPlanChanged,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			require.True(t, c.Has(kind))

			out, err := c.Render(kind, sampleData(kind))
			require.NoError(t, err)
			assert.NotEmpty(t, out.Subject)
			assert.Contains(t, out.PlainBody, "Hi Ama")
			assert.Contains(t, out.PlainBody, "sub_123")
			assert.Contains(t, out.HTMLBody, "<p>")
		})
	}
}

func TestCatalogue_RenewalFailedAutoRenewBranch(t *testing.T) {
	c, err := DefaultCatalogue()
	require.NoError(t, err)

	data := sampleData(usecases.NotificationRenewalFailed)
	data["auto_renew_disabled"] = true

	out, err := c.Render(usecases.NotificationRenewalFailed, data)
	require.NoError(t, err)
	assert.Contains(t, out.PlainBody, "Automatic renewal has been switched off")
	assert.NotContains(t, out.PlainBody, "We will try again automatically")
}

func TestCatalogue_MissingKey(t *testing.T) {
	c, err := DefaultCatalogue()
	require.NoError(t, err)

	_, err = c.Render(usecases.NotificationRenewed, map[string]any{"name": "Ama"})
	assert.Error(t, err)
}

func TestCatalogue_UnknownKind(t *testing.T) {
	c, err := DefaultCatalogue()
	require.NoError(t, err)

	_, err = c.Render("welcome", map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCatalogue_SanitizesHTML(t *testing.T) {
	c, err := DefaultCatalogue()
	require.NoError(t, err)

	data := sampleData(usecases.NotificationRenewalFailed)
	data["reason"] = `<script>alert("x")</script>declined`

	out, err := c.Render(usecases.NotificationRenewalFailed, data)
	require.NoError(t, err)
	assert.NotContains(t, out.HTMLBody, "<script>")
}

func TestParseCatalogue_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not yaml", "::::"},
		{"missing body", "renewed:\n  subject: hi\n"},
		{"bad template", "renewed:\n  subject: \"{{.x\"\n  body: hi\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalogue([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}
