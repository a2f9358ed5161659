package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/coursesub/internal/app/service/plan"
	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/response"
)

// @Summary      List plans
// @Description  Active plans in display order.
// @Tags         Plan
// @Produce      json
// @Success      200  {object}  handlers.RespPlanList
// @Router       /api/v1/plans [get]
func ApiListPlans(svc *plan.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := svc.ListActivePlans(c.Request.Context())
		if err != nil {
			logctx.FromGin(c, log).Errorw("failed to list plans", "err", err)
			writeFailure[any](c, response.APIResponseCodeError, response.ErrorCodeServerError, "", nil)
			return
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

func RegisterPlanRoutes(r gin.IRouter, svc *plan.Service, log *zap.SugaredLogger) {
	r.GET("/plans", ApiListPlans(svc, log))
}
