package response

// Response codes shared by every HTTP API.
type APIResponseCode int

const (
	APIResponseCodeOK         APIResponseCode = 0
	APIResponseCodeBadRequest APIResponseCode = 40000
	APIResponseCodeError      APIResponseCode = 50000
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:         "ok",
	APIResponseCodeBadRequest: "bad request",
	APIResponseCodeError:      "server error",
}

// ErrorCode is the machine readable reason carried by failed responses.
type ErrorCode string

const (
	ErrorCodeSubscriptionExists           ErrorCode = "SUBSCRIPTION_EXISTS"
	ErrorCodePlanNotFound                 ErrorCode = "PLAN_NOT_FOUND"
	ErrorCodeSubscriptionNotFound         ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	ErrorCodeNotAuthorized                ErrorCode = "NOT_AUTHORIZED"
	ErrorCodeSubscriptionNotActive        ErrorCode = "SUBSCRIPTION_NOT_ACTIVE"
	ErrorCodeSubscriptionNotReactivatable ErrorCode = "SUBSCRIPTION_NOT_REACTIVATABLE"
	ErrorCodeInvalidInterval              ErrorCode = "INVALID_INTERVAL"
	ErrorCodeInvalidRequest               ErrorCode = "INVALID_REQUEST"
	ErrorCodeUnauthenticated              ErrorCode = "UNAUTHENTICATED"
	ErrorCodeSubscriptionCreationFailed   ErrorCode = "SUBSCRIPTION_CREATION_FAILED"
	ErrorCodeServerError                  ErrorCode = "SERVER_ERROR"
)

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code      APIResponseCode `json:"code"`
	Message   string          `json:"message"`
	ErrorCode ErrorCode       `json:"error_code,omitempty"`
	Data      T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// FailT returns an error response tagged with a machine readable error code.
// message overrides the generic text of code when not empty.
func FailT[T any](code APIResponseCode, errCode ErrorCode, message string, data T) *APIResponse[T] {
	if message == "" {
		message = codeToMsg[code]
	}
	return &APIResponse[T]{Code: code, Message: message, ErrorCode: errCode, Data: data}
}
