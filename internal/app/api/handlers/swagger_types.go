package handlers

import (
	"github.com/fatflowers/coursesub/internal/app/service/audit"
	"github.com/fatflowers/coursesub/internal/app/service/statistics"
	subsvc "github.com/fatflowers/coursesub/internal/app/service/subscription"
	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/pkg/response"
)

// The Resp* types exist only so swag can describe the generic envelope.

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespCreateSubscription struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    subsvc.CreateResult      `json:"data"`
}

type RespSubscription struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SubscriptionResponse     `json:"data"`
}

type RespToggleAutoRenew struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ToggleAutoRenewResponse  `json:"data"`
}

type RespSubscriptionList struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Subscription    `json:"data"`
}

type RespHistoryList struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    []models.SubscriptionHistory `json:"data"`
}

type RespPlanList struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Plan            `json:"data"`
}

// RespAlreadyActive is returned with error_code SUBSCRIPTION_EXISTS.
type RespAlreadyActive struct {
	Code      response.APIResponseCode `json:"code"`
	Message   string                   `json:"message"`
	ErrorCode response.ErrorCode       `json:"error_code"`
	Data      AlreadyActiveData        `json:"data"`
}

type RespScanHistory struct {
	Code    response.APIResponseCode                        `json:"code"`
	Message string                                          `json:"message"`
	Data    audit.ScanResponse[*models.SubscriptionHistory] `json:"data"`
}

type RespScanTransactions struct {
	Code    response.APIResponseCode                            `json:"code"`
	Message string                                              `json:"message"`
	Data    audit.ScanResponse[*models.SubscriptionTransaction] `json:"data"`
}

type RespSubscriptionStatistic struct {
	Code    response.APIResponseCode                 `json:"code"`
	Message string                                   `json:"message"`
	Data    statistics.SubscriptionStatisticResponse `json:"data"`
}

type RespReconcileOrders struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ReconcileOrdersResponse  `json:"data"`
}
