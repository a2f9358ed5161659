package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/coursesub/internal/app/service/audit"
	"github.com/fatflowers/coursesub/internal/app/service/statistics"
	subsvc "github.com/fatflowers/coursesub/internal/app/service/subscription"
	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/response"
)

type ReconcileOrdersResponse struct {
	Completed int `json:"completed"`
}

// @Summary      List Subscription History (Admin)
// @Description  Retrieves a paginated and filterable list of lifecycle changes across all users.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body audit.ScanRequest true "Filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespScanHistory
// @Router       /api/v1/admin/list_history [post]
func ApiListHistory(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req audit.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanHistory(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Subscription Transactions (Admin)
// @Description  Retrieves a paginated and filterable list of payment entries.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body audit.ScanRequest true "Filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespScanTransactions
// @Router       /api/v1/admin/list_transactions [post]
func ApiListTransactions(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req audit.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Subscription Statistics (Admin)
// @Description  Retrieves daily payment and lifecycle statistics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.SubscriptionStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespSubscriptionStatistic
// @Router       /api/v1/admin/get_subscription_statistic [post]
func ApiGetSubscriptionStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.SubscriptionStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetSubscriptionStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Reconcile Orders (Admin)
// @Description  Completes orders whose payment was recorded but whose status was never updated. Safe to repeat.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespReconcileOrders
// @Router       /api/v1/admin/reconcile_orders [post]
func ApiReconcileOrders(sub *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := sub.ReconcileOrders(c.Request.Context())
		if err != nil {
			writeServiceError(c, log, "reconcile_orders", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&ReconcileOrdersResponse{Completed: n}))
	}
}

// @Summary      Force Delete Subscription (Admin)
// @Description  Removes a subscription row. History and transactions are kept.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SubscriptionIDRequest true "Subscription to delete"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/force_delete_subscription [post]
func ApiForceDeleteSubscription(sub *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubscriptionIDRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		if err := sub.ForceDelete(c.Request.Context(), req.SubscriptionID); err != nil {
			writeServiceError(c, log, "force_delete", err)
			return
		}
		logctx.FromGin(c, log).Warnw("admin force deleted subscription", "subscription_id", req.SubscriptionID)
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterAdminRoutes(r gin.IRouter, auditSvc *audit.Service, stats *statistics.Service, sub *subsvc.Service, log *zap.SugaredLogger) {
	r.POST("/list_history", ApiListHistory(auditSvc))
	r.POST("/list_transactions", ApiListTransactions(auditSvc))
	r.POST("/get_subscription_statistic", ApiGetSubscriptionStatistic(stats))
	r.POST("/reconcile_orders", ApiReconcileOrders(sub, log))
	r.POST("/force_delete_subscription", ApiForceDeleteSubscription(sub, log))
}
