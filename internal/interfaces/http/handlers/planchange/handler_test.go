package planchange

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/billing/internal/application/subscription/dto"
	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/interfaces/http/handlers/testutil"
	"github.com/orris-inc/billing/internal/shared/errors"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// =====================================================================
// Mock use cases
// =====================================================================

type mockScheduleUC struct {
	result  *dto.PlanChangeDTO
	err     error
	lastCmd usecases.ScheduleChangeCommand
}

func (m *mockScheduleUC) Execute(_ context.Context, cmd usecases.ScheduleChangeCommand) (*dto.PlanChangeDTO, error) {
	m.lastCmd = cmd
	return m.result, m.err
}

type mockImmediateUC struct {
	result  *dto.ImmediateChangeDTO
	err     error
	lastCmd usecases.InitiateImmediateChangeCommand
}

func (m *mockImmediateUC) Execute(_ context.Context, cmd usecases.InitiateImmediateChangeCommand) (*dto.ImmediateChangeDTO, error) {
	m.lastCmd = cmd
	return m.result, m.err
}

type mockCompleteUC struct {
	result  *dto.PlanChangeDTO
	err     error
	lastCmd usecases.CompleteImmediateChangeCommand
}

func (m *mockCompleteUC) Execute(_ context.Context, cmd usecases.CompleteImmediateChangeCommand) (*dto.PlanChangeDTO, error) {
	m.lastCmd = cmd
	return m.result, m.err
}

type mockCancelUC struct {
	cancelled bool
	err       error
}

func (m *mockCancelUC) Execute(_ context.Context, _ usecases.CancelChangeCommand) (bool, error) {
	return m.cancelled, m.err
}

type mockPreviewUC struct {
	result    *dto.ProrationDTO
	err       error
	lastQuery usecases.PreviewChangeQuery
}

func (m *mockPreviewUC) Execute(_ context.Context, query usecases.PreviewChangeQuery) (*dto.ProrationDTO, error) {
	m.lastQuery = query
	return m.result, m.err
}

type mockReactivateUC struct {
	err error
}

func (m *mockReactivateUC) Execute(_ context.Context, _ usecases.ReactivateSubscriptionCommand) error {
	return m.err
}

type mocks struct {
	schedule   *mockScheduleUC
	immediate  *mockImmediateUC
	complete   *mockCompleteUC
	cancel     *mockCancelUC
	preview    *mockPreviewUC
	reactivate *mockReactivateUC
}

func newTestHandler() (*Handler, *mocks) {
	m := &mocks{
		schedule:   &mockScheduleUC{},
		immediate:  &mockImmediateUC{},
		complete:   &mockCompleteUC{},
		cancel:     &mockCancelUC{},
		preview:    &mockPreviewUC{},
		reactivate: &mockReactivateUC{},
	}
	h := NewHandler(m.schedule, m.immediate, m.complete, m.cancel, m.preview, m.reactivate, logger.NewNopLogger())
	return h, m
}

// =====================================================================
// Tests
// =====================================================================

func TestHandler_Schedule(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h, m := newTestHandler()
		m.schedule.result = &dto.PlanChangeDTO{SID: "pchg_1", Status: "scheduled"}

		c, w := testutil.NewTestContext(http.MethodPost, "/api/v1/subscriptions/sub_1/plan-changes", ScheduleChangeRequest{PlanID: "plan_pro"})
		testutil.SetURLParam(c, "sid", "sub_1")

		h.Schedule(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "sub_1", m.schedule.lastCmd.SubscriptionSID)
		assert.Equal(t, "plan_pro", m.schedule.lastCmd.NewPlanSID)

		env := testutil.DecodeEnvelope(t, w)
		var got dto.PlanChangeDTO
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "pchg_1", got.SID)
	})

	t.Run("missing plan", func(t *testing.T) {
		h, _ := newTestHandler()
		c, w := testutil.NewTestContext(http.MethodPost, "/", map[string]string{})
		testutil.SetURLParam(c, "sid", "sub_1")

		h.Schedule(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("precondition failure", func(t *testing.T) {
		h, m := newTestHandler()
		m.schedule.err = errors.NewPreconditionError("subscription is not active")
		c, w := testutil.NewTestContext(http.MethodPost, "/", ScheduleChangeRequest{PlanID: "plan_pro"})
		testutil.SetURLParam(c, "sid", "sub_1")

		h.Schedule(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := testutil.DecodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, "subscription is not active", env.Error.Message)
	})
}

func TestHandler_InitiateImmediate(t *testing.T) {
	tests := []struct {
		name     string
		result   *dto.ImmediateChangeDTO
		wantCode int
	}{
		{"applied at once", &dto.ImmediateChangeDTO{RequiresPayment: false}, http.StatusOK},
		{"awaiting payment", &dto.ImmediateChangeDTO{RequiresPayment: true, Gateway: "paystack"}, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := newTestHandler()
			m.immediate.result = tt.result

			c, w := testutil.NewTestContext(http.MethodPost, "/", ImmediateChangeRequest{PlanID: "plan_pro", Gateway: "paystack"})
			testutil.SetURLParam(c, "sid", "sub_1")

			h.InitiateImmediate(c)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "paystack", m.immediate.lastCmd.Gateway)
		})
	}

	t.Run("unknown gateway rejected by binding", func(t *testing.T) {
		h, _ := newTestHandler()
		c, w := testutil.NewTestContext(http.MethodPost, "/", ImmediateChangeRequest{PlanID: "plan_pro", Gateway: "paypal"})
		testutil.SetURLParam(c, "sid", "sub_1")

		h.InitiateImmediate(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Complete(t *testing.T) {
	t.Run("charges stored authorization on empty body", func(t *testing.T) {
		h, m := newTestHandler()
		m.complete.result = &dto.PlanChangeDTO{SID: "pchg_1", Status: "completed"}

		c, w := testutil.NewTestContext(http.MethodPost, "/", nil)
		testutil.SetURLParam(c, "sid", "pchg_1")

		h.Complete(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pchg_1", m.complete.lastCmd.ChangeSID)
		assert.Empty(t, m.complete.lastCmd.PaymentReference)
	})

	t.Run("external payment reference", func(t *testing.T) {
		h, m := newTestHandler()
		m.complete.result = &dto.PlanChangeDTO{SID: "pchg_1", Status: "completed"}

		c, w := testutil.NewTestContext(http.MethodPost, "/", CompleteChangeRequest{
			PaymentReference: "ref_1",
			Gateway:          "stripe",
			Metadata:         map[string]any{"customer": "cus_1"},
		})
		testutil.SetURLParam(c, "sid", "pchg_1")

		h.Complete(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ref_1", m.complete.lastCmd.PaymentReference)
		assert.Equal(t, "cus_1", m.complete.lastCmd.Metadata["customer"])
	})

	t.Run("reference without gateway", func(t *testing.T) {
		h, _ := newTestHandler()
		c, w := testutil.NewTestContext(http.MethodPost, "/", CompleteChangeRequest{PaymentReference: "ref_1"})
		testutil.SetURLParam(c, "sid", "pchg_1")

		h.Complete(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("declined", func(t *testing.T) {
		h, m := newTestHandler()
		m.complete.err = errors.NewPaymentRequiredError("payment was declined")
		c, w := testutil.NewTestContext(http.MethodPost, "/", nil)
		testutil.SetURLParam(c, "sid", "pchg_1")

		h.Complete(c)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})
}

func TestHandler_Cancel(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		h, m := newTestHandler()
		m.cancel.cancelled = true
		c, w := testutil.NewTestContext(http.MethodDelete, "/", nil)
		testutil.SetURLParam(c, "sid", "pchg_1")

		h.Cancel(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"cancelled":true}`, string(testutil.DecodeEnvelope(t, w).Data))
	})

	t.Run("already closed", func(t *testing.T) {
		h, _ := newTestHandler()
		c, w := testutil.NewTestContext(http.MethodDelete, "/", nil)
		testutil.SetURLParam(c, "sid", "pchg_1")

		h.Cancel(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"cancelled":false}`, string(testutil.DecodeEnvelope(t, w).Data))
	})

	t.Run("not found", func(t *testing.T) {
		h, m := newTestHandler()
		m.cancel.err = errors.NewNotFoundError("plan change not found")
		c, w := testutil.NewTestContext(http.MethodDelete, "/", nil)
		testutil.SetURLParam(c, "sid", "pchg_missing")

		h.Cancel(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_Preview(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h, m := newTestHandler()
		m.preview.result = &dto.ProrationDTO{DaysRemaining: 15, Type: "upgrade"}
		c, w := testutil.NewTestContext(http.MethodGet, "/", nil)
		testutil.SetURLParam(c, "sid", "sub_1")
		testutil.SetQueryParams(c, map[string]string{"plan_id": "plan_pro"})

		h.Preview(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "plan_pro", m.preview.lastQuery.NewPlanSID)
		var got dto.ProrationDTO
		require.NoError(t, json.Unmarshal(testutil.DecodeEnvelope(t, w).Data, &got))
		assert.Equal(t, 15, got.DaysRemaining)
	})

	t.Run("missing plan_id", func(t *testing.T) {
		h, _ := newTestHandler()
		c, w := testutil.NewTestContext(http.MethodGet, "/", nil)
		testutil.SetURLParam(c, "sid", "sub_1")

		h.Preview(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("internal error hides details", func(t *testing.T) {
		h, m := newTestHandler()
		m.preview.err = context.DeadlineExceeded
		c, w := testutil.NewTestContext(http.MethodGet, "/", nil)
		testutil.SetURLParam(c, "sid", "sub_1")
		testutil.SetQueryParams(c, map[string]string{"plan_id": "plan_pro"})

		h.Preview(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "deadline")
	})
}

func TestHandler_Reactivate(t *testing.T) {
	h, m := newTestHandler()
	m.reactivate.err = errors.NewConflictError("only suspended subscriptions can be reactivated")
	c, w := testutil.NewTestContext(http.MethodPost, "/", nil)
	testutil.SetURLParam(c, "sid", "sub_1")

	h.Reactivate(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}
