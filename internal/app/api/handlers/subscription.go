package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/coursesub/internal/app/api/middleware"
	"github.com/fatflowers/coursesub/internal/app/service/audit"
	subsvc "github.com/fatflowers/coursesub/internal/app/service/subscription"
	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/response"
)

type CreateSubscriptionRequest struct {
	PlanID        string               `json:"plan_id" binding:"required"`
	PaymentMethod string               `json:"payment_method"`
	OrderDetails  *subsvc.OrderDetails `json:"order_details"`
}

type SubscriptionIDRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
}

type ChangePlanRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
	NewPlanID      string `json:"new_plan_id" binding:"required"`
}

type SubscriptionResponse struct {
	Subscription *models.Subscription `json:"subscription"`
}

type ToggleAutoRenewResponse struct {
	Subscription *models.Subscription `json:"subscription"`
	AutoRenew    bool                 `json:"auto_renew"`
}

// SubscriptionHandler serves the user facing lifecycle RPCs. The acting user
// always comes from the verified token.
type SubscriptionHandler struct {
	sub   *subsvc.Service
	audit *audit.Service
	log   *zap.SugaredLogger
}

func NewSubscriptionHandler(sub *subsvc.Service, auditSvc *audit.Service, log *zap.SugaredLogger) *SubscriptionHandler {
	return &SubscriptionHandler{sub: sub, audit: auditSvc, log: log}
}

// @Summary      Create subscription
// @Description  Starts a new subscription on a plan. Fails with SUBSCRIPTION_EXISTS when the user already has an active one.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSubscriptionRequest true "Plan and optional order details"
// @Success      200  {object}  handlers.RespCreateSubscription
// @Router       /api/v1/subscription/create [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.sub.Create(c.Request.Context(), mw.UserID(c), &subsvc.CreateRequest{
		PlanID:        req.PlanID,
		PaymentMethod: req.PaymentMethod,
		OrderDetails:  req.OrderDetails,
	})
	if err != nil {
		writeServiceError(c, h.log, "create", err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(res))
}

// @Summary      Cancel subscription
// @Description  Turns off renewal. The subscription stays usable until its end date.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SubscriptionIDRequest true "Subscription to cancel"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/subscription/cancel [post]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	h.withSubscriptionID(c, "cancel", func(c *gin.Context, userID, subscriptionID string) (any, error) {
		sub, err := h.sub.Cancel(c.Request.Context(), userID, subscriptionID)
		return &SubscriptionResponse{Subscription: sub}, err
	})
}

// @Summary      Renew subscription
// @Description  Charges the current plan again and starts a new period from now.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SubscriptionIDRequest true "Subscription to renew"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/subscription/renew [post]
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	h.withSubscriptionID(c, "renew", func(c *gin.Context, userID, subscriptionID string) (any, error) {
		sub, err := h.sub.Renew(c.Request.Context(), userID, subscriptionID)
		return &SubscriptionResponse{Subscription: sub}, err
	})
}

// @Summary      Reactivate subscription
// @Description  Returns a cancelled or expired subscription to active with a new period.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SubscriptionIDRequest true "Subscription to reactivate"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/subscription/reactivate [post]
func (h *SubscriptionHandler) Reactivate(c *gin.Context) {
	h.withSubscriptionID(c, "reactivate", func(c *gin.Context, userID, subscriptionID string) (any, error) {
		sub, err := h.sub.Reactivate(c.Request.Context(), userID, subscriptionID)
		return &SubscriptionResponse{Subscription: sub}, err
	})
}

// @Summary      Toggle auto renew
// @Description  The toggle-auto-renew operation. Flips auto renewal of an active subscription and returns the new value.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SubscriptionIDRequest true "Subscription to toggle"
// @Success      200  {object}  handlers.RespToggleAutoRenew
// @Router       /api/v1/subscription/toggle_auto_renew [post]
func (h *SubscriptionHandler) ToggleAutoRenew(c *gin.Context) {
	h.withSubscriptionID(c, "toggle_auto_renew", func(c *gin.Context, userID, subscriptionID string) (any, error) {
		sub, autoRenew, err := h.sub.ToggleAutoRenew(c.Request.Context(), userID, subscriptionID)
		return &ToggleAutoRenewResponse{Subscription: sub, AutoRenew: autoRenew}, err
	})
}

// @Summary      Change plan
// @Description  The change-plan operation. Moves an active subscription to another plan. Records an upgrade when the new plan costs more, a downgrade otherwise.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePlanRequest true "Subscription and target plan"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/subscription/change_plan [post]
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	sub, err := h.sub.ChangePlan(c.Request.Context(), mw.UserID(c), req.SubscriptionID, req.NewPlanID)
	if err != nil {
		writeServiceError(c, h.log, "change_plan", err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(&SubscriptionResponse{Subscription: sub}))
}

// @Summary      Current subscription
// @Tags         Subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/subscription/current [get]
func (h *SubscriptionHandler) Current(c *gin.Context) {
	sub, err := h.sub.GetCurrent(c.Request.Context(), mw.UserID(c))
	if err != nil {
		writeServiceError(c, h.log, "current", err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(&SubscriptionResponse{Subscription: sub}))
}

// @Summary      List subscriptions
// @Tags         Subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSubscriptionList
// @Router       /api/v1/subscription/list [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	subs, err := h.sub.ListForUser(c.Request.Context(), mw.UserID(c))
	if err != nil {
		writeServiceError(c, h.log, "list", err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(subs))
}

// @Summary      Subscription history
// @Description  Lifecycle changes of the caller's subscriptions, newest first.
// @Tags         Subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespHistoryList
// @Router       /api/v1/subscription/history [get]
func (h *SubscriptionHandler) History(c *gin.Context) {
	rows, err := h.audit.ListUserHistory(c.Request.Context(), mw.UserID(c), 0)
	if err != nil {
		logctx.FromGin(c, h.log).Errorw("failed to list history", "err", err)
		writeServiceError(c, h.log, "history", fmt.Errorf("%w: history", subsvc.ErrInternal))
		return
	}
	c.JSON(http.StatusOK, response.OKT(rows))
}

func (h *SubscriptionHandler) withSubscriptionID(c *gin.Context, op string, fn func(c *gin.Context, userID, subscriptionID string) (any, error)) {
	var req SubscriptionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	data, err := fn(c, mw.UserID(c), req.SubscriptionID)
	if err != nil {
		writeServiceError(c, h.log, op, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(data))
}

func RegisterSubscriptionRoutes(r gin.IRouter, h *SubscriptionHandler) {
	r.POST("/create", h.Create)
	r.POST("/cancel", h.Cancel)
	r.POST("/renew", h.Renew)
	r.POST("/reactivate", h.Reactivate)
	r.POST("/change_plan", h.ChangePlan)
	r.POST("/toggle_auto_renew", h.ToggleAutoRenew)
	r.GET("/current", h.Current)
	r.GET("/list", h.List)
	r.GET("/history", h.History)
}
