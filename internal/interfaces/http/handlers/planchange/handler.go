// Package planchange provides HTTP handlers for on-demand plan changes.
package planchange

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/shared/logger"
	"github.com/orris-inc/billing/internal/shared/utils"
)

type Handler struct {
	scheduleUseCase   scheduleChangeUseCase
	immediateUseCase  initiateImmediateChangeUseCase
	completeUseCase   completeImmediateChangeUseCase
	cancelUseCase     cancelChangeUseCase
	previewUseCase    previewChangeUseCase
	reactivateUseCase reactivateSubscriptionUseCase
	logger            logger.Interface
}

func NewHandler(
	scheduleUC scheduleChangeUseCase,
	immediateUC initiateImmediateChangeUseCase,
	completeUC completeImmediateChangeUseCase,
	cancelUC cancelChangeUseCase,
	previewUC previewChangeUseCase,
	reactivateUC reactivateSubscriptionUseCase,
	logger logger.Interface,
) *Handler {
	return &Handler{
		scheduleUseCase:   scheduleUC,
		immediateUseCase:  immediateUC,
		completeUseCase:   completeUC,
		cancelUseCase:     cancelUC,
		previewUseCase:    previewUC,
		reactivateUseCase: reactivateUC,
		logger:            logger,
	}
}

// ScheduleChangeRequest queues a plan change for the next renewal.
type ScheduleChangeRequest struct {
	PlanID string `json:"plan_id" binding:"required"` // plan SID
}

type ImmediateChangeRequest struct {
	PlanID  string `json:"plan_id" binding:"required"`
	Gateway string `json:"gateway" binding:"omitempty,oneof=paystack stripe mock"`
}

// CompleteChangeRequest completes a pending immediate change. Without a
// payment reference the stored authorization is charged.
type CompleteChangeRequest struct {
	PaymentReference string         `json:"payment_reference"`
	TransactionID    string         `json:"transaction_id"`
	Gateway          string         `json:"gateway" binding:"required_with=PaymentReference"`
	Metadata         map[string]any `json:"metadata"`
}

type PreviewChangeRequest struct {
	PlanID string `form:"plan_id" binding:"required"`
}

// Schedule queues a plan change that takes effect at the next renewal.
//
//	@Summary		Schedule a plan change
//	@Description	Queue a change to another plan for the next renewal. Replaces any earlier scheduled change.
//	@Tags			plan-changes
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string					true	"Subscription ID (sub_xxx)"
//	@Param			request	body		ScheduleChangeRequest	true	"Target plan"
//	@Success		201		{object}	utils.APIResponse{data=dto.PlanChangeDTO}
//	@Failure		400		{object}	utils.APIResponse	"Invalid request"
//	@Failure		404		{object}	utils.APIResponse	"Subscription or plan not found"
//	@Failure		422		{object}	utils.APIResponse	"Subscription cannot change plan"
//	@Router			/subscriptions/{sid}/plan-changes [post]
func (h *Handler) Schedule(c *gin.Context) {
	var req ScheduleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for schedule plan change", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.scheduleUseCase.Execute(c.Request.Context(), usecases.ScheduleChangeCommand{
		SubscriptionSID: c.Param("sid"),
		NewPlanSID:      req.PlanID,
	})
	if err != nil {
		h.logger.Errorw("failed to schedule plan change", "error", err, "subscription_id", c.Param("sid"))
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Plan change scheduled for next renewal")
}

// InitiateImmediate applies a plan change now, or leaves it pending when
// it costs money.
//
//	@Summary		Change plan immediately
//	@Description	Prorate the current period. A change that costs nothing is applied at once; otherwise it waits for completion with a payment.
//	@Tags			plan-changes
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string					true	"Subscription ID (sub_xxx)"
//	@Param			request	body		ImmediateChangeRequest	true	"Target plan and payment gateway"
//	@Success		200		{object}	utils.APIResponse{data=dto.ImmediateChangeDTO}	"Plan changed"
//	@Success		202		{object}	utils.APIResponse{data=dto.ImmediateChangeDTO}	"Awaiting payment"
//	@Failure		400		{object}	utils.APIResponse	"Invalid request"
//	@Failure		404		{object}	utils.APIResponse	"Subscription or plan not found"
//	@Failure		422		{object}	utils.APIResponse	"Subscription cannot change plan"
//	@Router			/subscriptions/{sid}/plan-changes/immediate [post]
func (h *Handler) InitiateImmediate(c *gin.Context) {
	var req ImmediateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for immediate plan change", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.immediateUseCase.Execute(c.Request.Context(), usecases.InitiateImmediateChangeCommand{
		SubscriptionSID: c.Param("sid"),
		NewPlanSID:      req.PlanID,
		Gateway:         req.Gateway,
	})
	if err != nil {
		h.logger.Errorw("failed to initiate immediate plan change", "error", err, "subscription_id", c.Param("sid"))
		utils.ErrorResponseWithError(c, err)
		return
	}

	if result.RequiresPayment {
		utils.SuccessResponse(c, http.StatusAccepted, "Plan change awaiting payment", result)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Plan changed", result)
}

// Complete finishes a pending immediate change.
//
//	@Summary		Complete an immediate plan change
//	@Description	Record an external payment, or with an empty body charge the stored authorization, then apply the change. Completing twice charges once.
//	@Tags			plan-changes
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string					true	"Plan change ID (pchg_xxx)"
//	@Param			request	body		CompleteChangeRequest	false	"External payment"
//	@Success		200		{object}	utils.APIResponse{data=dto.PlanChangeDTO}
//	@Failure		402		{object}	utils.APIResponse	"Payment declined"
//	@Failure		404		{object}	utils.APIResponse	"Plan change not found"
//	@Failure		409		{object}	utils.APIResponse	"Change no longer pending, or payment still processing"
//	@Router			/plan-changes/{sid}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	var req CompleteChangeRequest
	// An empty body means "charge the stored authorization".
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warnw("invalid request body for complete plan change", "error", err)
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := h.completeUseCase.Execute(c.Request.Context(), usecases.CompleteImmediateChangeCommand{
		ChangeSID:        c.Param("sid"),
		PaymentReference: req.PaymentReference,
		TransactionID:    req.TransactionID,
		Gateway:          req.Gateway,
		Metadata:         req.Metadata,
	})
	if err != nil {
		h.logger.Errorw("failed to complete plan change", "error", err, "plan_change_id", c.Param("sid"))
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Plan change completed", result)
}

// Cancel withdraws a change that has not run yet.
//
//	@Summary		Cancel a plan change
//	@Tags			plan-changes
//	@Produce		json
//	@Param			sid	path		string	true	"Plan change ID (pchg_xxx)"
//	@Success		200	{object}	utils.APIResponse
//	@Failure		404	{object}	utils.APIResponse	"Plan change not found"
//	@Failure		409	{object}	utils.APIResponse	"Change already completed"
//	@Router			/plan-changes/{sid} [delete]
func (h *Handler) Cancel(c *gin.Context) {
	cancelled, err := h.cancelUseCase.Execute(c.Request.Context(), usecases.CancelChangeCommand{
		ChangeSID: c.Param("sid"),
	})
	if err != nil {
		h.logger.Errorw("failed to cancel plan change", "error", err, "plan_change_id", c.Param("sid"))
		utils.ErrorResponseWithError(c, err)
		return
	}

	message := "Plan change cancelled"
	if !cancelled {
		message = "Plan change was already closed"
	}
	utils.SuccessResponse(c, http.StatusOK, message, gin.H{"cancelled": cancelled})
}

// Preview prices a change without applying it.
//
//	@Summary		Preview a plan change
//	@Tags			plan-changes
//	@Produce		json
//	@Param			sid		path		string	true	"Subscription ID (sub_xxx)"
//	@Param			plan_id	query		string	true	"Target plan ID"
//	@Success		200		{object}	utils.APIResponse{data=dto.ProrationDTO}
//	@Failure		400		{object}	utils.APIResponse	"plan_id missing"
//	@Failure		404		{object}	utils.APIResponse	"Subscription or plan not found"
//	@Router			/subscriptions/{sid}/plan-changes/preview [get]
func (h *Handler) Preview(c *gin.Context) {
	var req PreviewChangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "plan_id is required")
		return
	}

	result, err := h.previewUseCase.Execute(c.Request.Context(), usecases.PreviewChangeQuery{
		SubscriptionSID: c.Param("sid"),
		NewPlanSID:      req.PlanID,
	})
	if err != nil {
		h.logger.Warnw("failed to preview plan change", "error", err, "subscription_id", c.Param("sid"))
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// Reactivate returns a suspended subscription to active.
//
//	@Summary		Reactivate a subscription
//	@Tags			subscriptions
//	@Produce		json
//	@Param			sid	path		string	true	"Subscription ID (sub_xxx)"
//	@Success		200	{object}	utils.APIResponse
//	@Failure		404	{object}	utils.APIResponse	"Subscription not found"
//	@Failure		409	{object}	utils.APIResponse	"Subscription is not suspended"
//	@Router			/subscriptions/{sid}/reactivate [post]
func (h *Handler) Reactivate(c *gin.Context) {
	err := h.reactivateUseCase.Execute(c.Request.Context(), usecases.ReactivateSubscriptionCommand{
		SubscriptionSID: c.Param("sid"),
	})
	if err != nil {
		h.logger.Errorw("failed to reactivate subscription", "error", err, "subscription_id", c.Param("sid"))
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Subscription reactivated", nil)
}
