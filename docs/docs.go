// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://example.com/terms/",
        "contact": {
            "name": "API Support",
            "url": "http://www.example.com/support",
            "email": "support@example.com"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "System"
                ],
                "summary": "Health check",
                "description": "Returns service status",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/plans": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Plan"
                ],
                "summary": "List plans",
                "description": "Active plans in display order.",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespPlanList"
                        }
                    }
                }
            }
        },
        "/api/v1/subscription/create": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "summary": "Create subscription",
                "description": "Starts a new subscription on a plan. Fails with SUBSCRIPTION_EXISTS when the user already has an active one.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.CreateSubscriptionRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespCreateSubscription"
                        }
                    }
                }
            }
        },
        "/api/v1/subscription/cancel": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "summary": "Cancel subscription",
                "description": "Turns off renewal. The subscription stays usable until its end date.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.SubscriptionIDRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespSubscription"
                        }
                    }
                }
            }
        },
        "/api/v1/subscription/renew": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "summary": "Renew subscription",
                "description": "Charges the current plan again and starts a new period from now.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.SubscriptionIDRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespSubscription"
                        }
                    }
                }
            }
        },
        "/api/v1/subscription/reactivate": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "summary": "Reactivate subscription",
                "description": "Returns a cancelled or expired subscription to active with a new period.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.SubscriptionIDRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespSubscription"
                        }
                    }
                }
            }
        },
        "/api/v1/subscription/change_plan": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "summary": "Change plan",
                "description": "The change-plan operation. Moves an active subscription to another plan. Records an upgrade when the new plan costs more, a downgrade otherwise.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.ChangePlanRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespSubscription"
                        }
                    }
                }
            }
        },
        "/api/v1/subscription/toggle_auto_renew": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "description": "The toggle-auto-renew operation. Flips auto renewal of an active subscription and returns the new value.",
                "summary": "Toggle auto renew",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.SubscriptionIDRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespToggleAutoRenew"
                        }
                    }
                }
            }
        },
        "/api/v1/subscription/current": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "summary": "Current subscription",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespSubscription"
                        }
                    }
                }
            }
        },
        "/api/v1/subscription/list": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "summary": "List subscriptions",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespSubscriptionList"
                        }
                    }
                }
            }
        },
        "/api/v1/subscription/history": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "summary": "Subscription history",
                "description": "Lifecycle changes of the caller's subscriptions, newest first.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespHistoryList"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/list_history": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "List Subscription History (Admin)",
                "description": "Retrieves a paginated and filterable list of lifecycle changes across all users.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/audit.ScanRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespScanHistory"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/list_transactions": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "List Subscription Transactions (Admin)",
                "description": "Retrieves a paginated and filterable list of payment entries.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/audit.ScanRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespScanTransactions"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/get_subscription_statistic": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Get Subscription Statistics (Admin)",
                "description": "Retrieves daily payment and lifecycle statistics.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/statistics.SubscriptionStatisticRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespSubscriptionStatistic"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/reconcile_orders": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Reconcile Orders (Admin)",
                "description": "Completes orders whose payment was recorded but whose status was never updated. Safe to repeat.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespReconcileOrders"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/force_delete_subscription": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Force Delete Subscription (Admin)",
                "description": "Removes a subscription row. History and transactions are kept.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "request body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.SubscriptionIDRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "audit.ScanRequest": {
            "type": "object",
            "properties": {
                "filters": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/types.CommonFilter"
                    }
                },
                "from": {
                    "type": "integer"
                },
                "size": {
                    "type": "integer"
                },
                "sort_by": {
                    "type": "string"
                },
                "sort_order": {
                    "type": "string"
                }
            }
        },
        "handlers.AlreadyActiveData": {
            "type": "object",
            "properties": {
                "subscription_id": {
                    "type": "string"
                },
                "plan_id": {
                    "type": "string"
                },
                "plan_name": {
                    "type": "string"
                },
                "end_date": {
                    "type": "string"
                }
            }
        },
        "handlers.ChangePlanRequest": {
            "type": "object",
            "required": [
                "new_plan_id",
                "subscription_id"
            ],
            "properties": {
                "subscription_id": {
                    "type": "string"
                },
                "new_plan_id": {
                    "type": "string"
                }
            }
        },
        "handlers.CreateSubscriptionRequest": {
            "type": "object",
            "required": [
                "plan_id"
            ],
            "properties": {
                "plan_id": {
                    "type": "string"
                },
                "payment_method": {
                    "type": "string"
                },
                "order_details": {
                    "$ref": "#/definitions/subscription.OrderDetails"
                }
            }
        },
        "handlers.ReconcileOrdersResponse": {
            "type": "object",
            "properties": {
                "completed": {
                    "type": "integer"
                }
            }
        },
        "handlers.RespCreateSubscription": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/subscription.CreateResult"
                }
            }
        },
        "handlers.RespHistoryList": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.SubscriptionHistory"
                    }
                }
            }
        },
        "handlers.RespOK": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "object"
                }
            }
        },
        "handlers.RespPlanList": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Plan"
                    }
                }
            }
        },
        "handlers.RespReconcileOrders": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/handlers.ReconcileOrdersResponse"
                }
            }
        },
        "handlers.RespScanHistory": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "object",
                    "properties": {
                        "items": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/models.SubscriptionHistory"
                            }
                        },
                        "total": {
                            "type": "integer"
                        }
                    }
                }
            }
        },
        "handlers.RespScanTransactions": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "object",
                    "properties": {
                        "items": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/models.SubscriptionTransaction"
                            }
                        },
                        "total": {
                            "type": "integer"
                        }
                    }
                }
            }
        },
        "handlers.RespSubscription": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/handlers.SubscriptionResponse"
                }
            }
        },
        "handlers.RespSubscriptionList": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Subscription"
                    }
                }
            }
        },
        "handlers.RespSubscriptionStatistic": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "object",
                    "properties": {
                        "data_items": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "array",
                                "items": {
                                    "$ref": "#/definitions/statistics.SubscriptionStatisticResponseDataItem"
                                }
                            }
                        }
                    }
                }
            }
        },
        "handlers.RespToggleAutoRenew": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/handlers.ToggleAutoRenewResponse"
                }
            }
        },
        "handlers.SubscriptionIDRequest": {
            "type": "object",
            "required": [
                "subscription_id"
            ],
            "properties": {
                "subscription_id": {
                    "type": "string"
                }
            }
        },
        "handlers.SubscriptionResponse": {
            "type": "object",
            "properties": {
                "subscription": {
                    "$ref": "#/definitions/models.Subscription"
                }
            }
        },
        "handlers.ToggleAutoRenewResponse": {
            "type": "object",
            "properties": {
                "subscription": {
                    "$ref": "#/definitions/models.Subscription"
                },
                "auto_renew": {
                    "type": "boolean"
                }
            }
        },
        "models.Plan": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "price": {
                    "type": "string"
                },
                "currency": {
                    "type": "string"
                },
                "billing_interval": {
                    "type": "string",
                    "enum": [
                        "monthly",
                        "quarterly",
                        "yearly",
                        "2years",
                        "3years"
                    ]
                },
                "is_active": {
                    "type": "boolean"
                },
                "display_order": {
                    "type": "integer"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "models.Subscription": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "plan_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "active",
                        "cancelled",
                        "expired",
                        "trial"
                    ]
                },
                "start_date": {
                    "type": "string"
                },
                "end_date": {
                    "type": "string"
                },
                "auto_renew": {
                    "type": "boolean"
                },
                "payment_method": {
                    "type": "string"
                },
                "last_payment_date": {
                    "type": "string"
                },
                "next_payment_date": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "models.SubscriptionHistory": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "subscription_id": {
                    "type": "string"
                },
                "previous_plan_id": {
                    "type": "string"
                },
                "new_plan_id": {
                    "type": "string"
                },
                "change_type": {
                    "type": "string",
                    "enum": [
                        "new",
                        "upgrade",
                        "downgrade",
                        "cancel",
                        "renew",
                        "reactivate"
                    ]
                },
                "amount": {
                    "type": "string"
                },
                "currency": {
                    "type": "string"
                },
                "effective_date": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "models.SubscriptionTransaction": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "subscription_id": {
                    "type": "string"
                },
                "order_id": {
                    "type": "string"
                },
                "transaction_type": {
                    "type": "string",
                    "enum": [
                        "payment",
                        "refund"
                    ]
                },
                "amount": {
                    "type": "string"
                },
                "currency": {
                    "type": "string"
                },
                "payment_method": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "extra": {
                    "type": "object"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "statistics.SubscriptionStatisticRequest": {
            "type": "object",
            "properties": {
                "filters": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/types.CommonFilter"
                    }
                },
                "data_items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "statistics.SubscriptionStatisticResponseDataItem": {
            "type": "object",
            "properties": {
                "date": {
                    "type": "string"
                },
                "label": {
                    "type": "string"
                },
                "value": {
                    "type": "string"
                }
            }
        },
        "subscription.CreateResult": {
            "type": "object",
            "properties": {
                "subscription": {
                    "$ref": "#/definitions/models.Subscription"
                },
                "amount": {
                    "type": "string"
                }
            }
        },
        "subscription.OrderDetails": {
            "type": "object",
            "properties": {
                "order_number": {
                    "type": "string"
                },
                "total": {
                    "type": "string"
                }
            }
        },
        "types.CommonFilter": {
            "type": "object",
            "properties": {
                "field": {
                    "type": "string"
                },
                "operator": {
                    "type": "string",
                    "enum": [
                        "eq",
                        "not_eq",
                        "lt",
                        "lte",
                        "gt",
                        "gte",
                        "date_range",
                        "range",
                        "in"
                    ]
                },
                "values": {
                    "type": "array",
                    "items": {}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT issued by the account service, as \"Bearer <token>\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8888",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Course Subscription API",
	Description:      "Subscription lifecycle service: plans, subscriptions and their audit trail.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
