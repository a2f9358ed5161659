package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/coursesub/internal/app/api/middleware"
	subsvc "github.com/fatflowers/coursesub/internal/app/service/subscription"
	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/response"
)

// AlreadyActiveData is returned with SUBSCRIPTION_EXISTS so clients can show
// the subscription that blocks the request.
type AlreadyActiveData struct {
	SubscriptionID string    `json:"subscription_id"`
	PlanID         string    `json:"plan_id"`
	PlanName       string    `json:"plan_name"`
	EndDate        time.Time `json:"end_date"`
}

var errorCodes = []struct {
	err     error
	errCode response.ErrorCode
}{
	{subsvc.ErrPlanNotFound, response.ErrorCodePlanNotFound},
	{subsvc.ErrNotFound, response.ErrorCodeSubscriptionNotFound},
	{subsvc.ErrNotAuthorized, response.ErrorCodeNotAuthorized},
	{subsvc.ErrNotActive, response.ErrorCodeSubscriptionNotActive},
	{subsvc.ErrNotReactivatable, response.ErrorCodeSubscriptionNotReactivatable},
	{subsvc.ErrInvalidInterval, response.ErrorCodeInvalidInterval},
	{subsvc.ErrInvalidRequest, response.ErrorCodeInvalidRequest},
}

// writeServiceError renders a lifecycle error in the response envelope.
// Internal failures never echo the underlying error.
func writeServiceError(c *gin.Context, log *zap.SugaredLogger, op string, err error) {
	var aae *subsvc.AlreadyActiveError
	if errors.As(err, &aae) {
		writeFailure(c, response.APIResponseCodeBadRequest, response.ErrorCodeSubscriptionExists, err.Error(), &AlreadyActiveData{
			SubscriptionID: aae.SubscriptionID,
			PlanID:         aae.PlanID,
			PlanName:       aae.PlanName,
			EndDate:        aae.EndDate,
		})
		return
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			writeFailure[any](c, response.APIResponseCodeBadRequest, ec.errCode, err.Error(), nil)
			return
		}
	}

	if !errors.Is(err, subsvc.ErrInternal) {
		logctx.FromGin(c, log).Errorw("unmapped service error", "op", op, "err", err)
	}
	if op == "create" {
		writeFailure[any](c, response.APIResponseCodeError, response.ErrorCodeSubscriptionCreationFailed,
			"subscription creation failed, check the current subscription before retrying", nil)
		return
	}
	writeFailure[any](c, response.APIResponseCodeError, response.ErrorCodeServerError, "internal error, please retry", nil)
}

func writeBindError(c *gin.Context, err error) {
	writeFailure[any](c, response.APIResponseCodeBadRequest, response.ErrorCodeInvalidRequest, err.Error(), nil)
}

func writeFailure[T any](c *gin.Context, code response.APIResponseCode, errCode response.ErrorCode, message string, data T) {
	c.Set(mw.ContextKeyErrorCode, string(errCode))
	c.JSON(http.StatusOK, response.FailT(code, errCode, message, data))
}
