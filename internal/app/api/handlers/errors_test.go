package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mw "github.com/fatflowers/coursesub/internal/app/api/middleware"
	subsvc "github.com/fatflowers/coursesub/internal/app/service/subscription"
	"github.com/fatflowers/coursesub/pkg/response"
)

func renderServiceError(t *testing.T, op string, err error) (*httptest.ResponseRecorder, *gin.Context, *response.APIResponse[json.RawMessage]) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	writeServiceError(c, zap.NewNop().Sugar(), op, err)

	var body response.APIResponse[json.RawMessage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, c, &body
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		name    string
		op      string
		err     error
		code    response.APIResponseCode
		errCode response.ErrorCode
	}{
		{"plan not found", "create", fmt.Errorf("%w: gold", subsvc.ErrPlanNotFound), response.APIResponseCodeBadRequest, response.ErrorCodePlanNotFound},
		{"not found", "cancel", subsvc.ErrNotFound, response.APIResponseCodeBadRequest, response.ErrorCodeSubscriptionNotFound},
		{"not authorized", "cancel", subsvc.ErrNotAuthorized, response.APIResponseCodeBadRequest, response.ErrorCodeNotAuthorized},
		{"not active", "renew", fmt.Errorf("%w: status cancelled", subsvc.ErrNotActive), response.APIResponseCodeBadRequest, response.ErrorCodeSubscriptionNotActive},
		{"not reactivatable", "reactivate", subsvc.ErrNotReactivatable, response.APIResponseCodeBadRequest, response.ErrorCodeSubscriptionNotReactivatable},
		{"invalid interval", "renew", subsvc.ErrInvalidInterval, response.APIResponseCodeBadRequest, response.ErrorCodeInvalidInterval},
		{"invalid request", "create", subsvc.ErrInvalidRequest, response.APIResponseCodeBadRequest, response.ErrorCodeInvalidRequest},
		{"internal on create", "create", fmt.Errorf("%w: create", subsvc.ErrInternal), response.APIResponseCodeError, response.ErrorCodeSubscriptionCreationFailed},
		{"internal elsewhere", "cancel", fmt.Errorf("%w: cancel", subsvc.ErrInternal), response.APIResponseCodeError, response.ErrorCodeServerError},
		{"unmapped", "renew", errors.New("driver: bad connection"), response.APIResponseCodeError, response.ErrorCodeServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, c, body := renderServiceError(t, tc.op, tc.err)
			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, tc.code, body.Code)
			require.Equal(t, tc.errCode, body.ErrorCode)
			require.Equal(t, string(tc.errCode), c.GetString(mw.ContextKeyErrorCode))
			require.NotContains(t, body.Message, "bad connection")
		})
	}
}

func TestWriteServiceError_AlreadyActive(t *testing.T) {
	end := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)
	err := fmt.Errorf("create: %w", &subsvc.AlreadyActiveError{
		SubscriptionID: "0190b8d2-0000-7000-8000-000000000001",
		PlanID:         "basic-monthly",
		PlanName:       "Basic",
		EndDate:        end,
	})

	_, _, body := renderServiceError(t, "create", err)
	require.Equal(t, response.APIResponseCodeBadRequest, body.Code)
	require.Equal(t, response.ErrorCodeSubscriptionExists, body.ErrorCode)

	var data AlreadyActiveData
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, "basic-monthly", data.PlanID)
	require.Equal(t, "Basic", data.PlanName)
	require.True(t, end.Equal(data.EndDate))
}
