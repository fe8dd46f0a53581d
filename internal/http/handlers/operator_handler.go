// Operator HTTP handlers.
//
//   - POST  /carts/sweep                                  (start a sweep)
//   - PATCH /orders/{id}/status                           (advance an order)
//   - POST  /merchants/{id}/referral-codes                (issue a referral code)
//   - POST  /merchants/{id}/notification-templates/defaults
//   - PATCH /merchants/{id}/discount-codes/{code}/deactivate
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/http/middleware"
	"github.com/ingaz2013/sari-sub001/internal/services"
	"github.com/ingaz2013/sari-sub001/internal/webhook"
)

// Sweep states reported by StartSweep.
const (
	SweepStarted        = "started"
	SweepAlreadyRunning = "already_running"
)

// SweepResponse reports whether a sweep was started.
type SweepResponse struct {
	Status string `json:"status" example:"started"`
}

// UpdateOrderStatusRequest is the body of PATCH /orders/{id}/status.
type UpdateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required,oneof=pending paid processing shipped delivered cancelled" example:"shipped"`
	TrackingNumber string `json:"tracking_number,omitempty" example:"SMSA123456"`
}

// OrderStatusResponse is the order after an advance, plus what it triggered.
type OrderStatusResponse struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"          example:"shipped"`
	TrackingNumber string   `json:"tracking_number,omitempty"`
	Notified       bool     `json:"notified"`
	RewardCodes    []string `json:"reward_codes,omitempty"`
	WelcomeCode    string   `json:"welcome_code,omitempty"`
}

// IssueReferralRequest is the body of POST /merchants/{id}/referral-codes.
type IssueReferralRequest struct {
	Phone string `json:"phone" binding:"required" example:"966501234567"`
	Name  string `json:"name,omitempty" example:"سارة"`
}

// ReferralCodeResponse is an issued referral code.
type ReferralCodeResponse struct {
	Code          string `json:"code"           example:"REF4567ABCD"`
	ReferrerPhone string `json:"referrer_phone" example:"966501234567"`
	ReferralCount int    `json:"referral_count"`
	RewardGiven   bool   `json:"reward_given"`
	InviteMessage string `json:"invite_message"`
}

// TemplateDefaultsResponse reports how many templates were created.
type TemplateDefaultsResponse struct {
	Created int `json:"created" example:"5"`
}

// DiscountCodeResponse is a discount code after a state change.
type DiscountCodeResponse struct {
	Code   string `json:"code"   example:"SARI10"`
	Active bool   `json:"active" example:"false"`
}

// StartSweep godoc
// @ID          startCartSweep
// @Summary     Start an abandoned-cart sweep
// @Description Starts a sweep in the background. At most one sweep runs at a time.
// @Tags        Carts
// @Produce     json
// @Success     202  {object} handlers.SweepResponse
// @Router      /carts/sweep [post]
func (h *Handlers) StartSweep(c *gin.Context) {
	if !h.sweeping.CompareAndSwap(false, true) {
		ok(c, http.StatusAccepted, SweepResponse{Status: SweepAlreadyRunning})
		return
	}
	lg := middleware.LoggerFrom(c)
	go func() {
		defer h.sweeping.Store(false)
		res, err := h.svc.Carts.Sweep(lg.WithContext(h.base))
		if err != nil {
			lg.Error().Err(err).Msg("cart sweep aborted")
			return
		}
		lg.Info().Int("checked", res.Checked).Int("reminded", res.Reminded).Int("errors", res.Errors).Msg("cart sweep done")
	}()
	ok(c, http.StatusAccepted, SweepResponse{Status: SweepStarted})
}

// UpdateOrderStatus godoc
// @ID          updateOrderStatus
// @Summary     Advance an order's status
// @Description Moves the order forward, notifies the customer, completes referrals on payment and sends a welcome code on first delivery.
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Param       id    path     string                             true "Order ID"
// @Param       body  body     handlers.UpdateOrderStatusRequest  true "New status"
// @Success     200   {object} handlers.OrderStatusResponse
// @Failure     400   {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404   {object} handlers.ErrorResponse "Order not found"
// @Failure     409   {object} handlers.ErrorResponse "Transition not allowed"
// @Failure     500   {object} handlers.ErrorResponse "Internal server error"
// @Router      /orders/{id}/status [patch]
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be one of pending, paid, processing, shipped, delivered, cancelled")
		return
	}

	res, err := h.svc.Orders.Advance(c.Request.Context(), c.Param("id"), req.Status, strings.TrimSpace(req.TrackingNumber))
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
		return
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, "order cannot move to "+req.Status)
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, OrderStatusResponse{
		ID:             res.Order.ID,
		Status:         res.Order.Status,
		TrackingNumber: res.Order.TrackingNumber,
		Notified:       res.Notified,
		RewardCodes:    res.RewardCodes,
		WelcomeCode:    res.WelcomeCode,
	})
}

// IssueReferralCode godoc
// @ID          issueReferralCode
// @Summary     Issue a referral code
// @Description Returns the customer's referral code, creating it on first call, with the invite text to forward.
// @Tags        Referrals
// @Accept      json
// @Produce     json
// @Param       id    path     string                          true "Merchant ID"
// @Param       body  body     handlers.IssueReferralRequest   true "Referrer"
// @Success     200   {object} handlers.ReferralCodeResponse
// @Failure     400   {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404   {object} handlers.ErrorResponse "Merchant not found"
// @Failure     500   {object} handlers.ErrorResponse "Internal server error"
// @Router      /merchants/{id}/referral-codes [post]
func (h *Handlers) IssueReferralCode(c *gin.Context) {
	var req IssueReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone is required")
		return
	}
	phone := webhook.PhoneFromChatID(req.Phone)
	if len(phone) < 8 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone must contain at least 8 digits")
		return
	}

	inv, err := h.svc.Referrals.Invite(c.Request.Context(), c.Param("id"), phone, strings.TrimSpace(req.Name))
	switch {
	case errors.Is(err, services.ErrMerchantNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "merchant not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeIssueFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, referralResponse(inv.Code, inv.Message))
}

func referralResponse(rc *domain.ReferralCode, invite string) ReferralCodeResponse {
	return ReferralCodeResponse{
		Code:          rc.Code,
		ReferrerPhone: rc.ReferrerPhone,
		ReferralCount: rc.ReferralCount,
		RewardGiven:   rc.RewardGiven,
		InviteMessage: invite,
	}
}

// InitializeTemplates godoc
// @ID          initializeNotificationTemplates
// @Summary     Create the default notification templates
// @Description Gives the merchant an editable copy of every built-in template it does not have yet.
// @Tags        Notifications
// @Produce     json
// @Param       id   path     string  true "Merchant ID"
// @Success     200  {object} handlers.TemplateDefaultsResponse
// @Failure     404  {object} handlers.ErrorResponse "Merchant not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /merchants/{id}/notification-templates/defaults [post]
func (h *Handlers) InitializeTemplates(c *gin.Context) {
	n, err := h.svc.Templates.InitializeDefaults(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrMerchantNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "merchant not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, TemplateDefaultsResponse{Created: n})
}

// DeactivateDiscountCode godoc
// @ID          deactivateDiscountCode
// @Summary     Deactivate a discount code
// @Description Turns the code off so it no longer validates. Codes are kept for their usage history.
// @Tags        Discounts
// @Produce     json
// @Param       id    path     string  true "Merchant ID"
// @Param       code  path     string  true "Discount code"
// @Success     200   {object} handlers.DiscountCodeResponse
// @Failure     404   {object} handlers.ErrorResponse "Discount code not found"
// @Failure     500   {object} handlers.ErrorResponse "Internal server error"
// @Router      /merchants/{id}/discount-codes/{code}/deactivate [patch]
func (h *Handlers) DeactivateDiscountCode(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	err := h.svc.Discounts.Deactivate(c.Request.Context(), c.Param("id"), code)
	switch {
	case errors.Is(err, services.ErrDiscountNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "discount code not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, DiscountCodeResponse{Code: code, Active: false})
}
