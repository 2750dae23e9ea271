// Package docs holds the OpenAPI document served at /swagger. It follows the
// swag output layout; regenerate it from the handler annotations with
// go generate after changing a route.
package docs

//go:generate swag init --dir ../ --generalInfo cmd/server/main.go --output . --outputTypes go --parseInternal

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "definitions": {
        "domain.BulkOp": {
            "enum": [
                "approve",
                "unapprove",
                "delete"
            ],
            "type": "string",
            "x-enum-varnames": [
                "BulkApprove",
                "BulkUnapprove",
                "BulkDelete"
            ]
        },
        "domain.EntityType": {
            "enum": [
                "recipe-list",
                "recipe-stats",
                "meal-plan-list",
                "meal-plan-stats"
            ],
            "type": "string",
            "x-enum-varnames": [
                "EntityRecipeList",
                "EntityRecipeStats",
                "EntityMealPlanList",
                "EntityMealPlanStats"
            ]
        },
        "domain.MealPlan": {
            "properties": {
                "approved": {
                    "type": "boolean"
                },
                "createdAt": {
                    "type": "string"
                },
                "customerId": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                }
            },
            "type": "object"
        },
        "domain.MealPlanPage": {
            "properties": {
                "mealPlans": {
                    "items": {
                        "$ref": "#/definitions/domain.MealPlan"
                    },
                    "type": "array"
                },
                "total": {
                    "type": "integer"
                }
            },
            "type": "object"
        },
        "domain.MutationKind": {
            "enum": [
                "approve",
                "unapprove",
                "delete",
                "bulkApprove",
                "bulkUnapprove",
                "bulkDelete"
            ],
            "type": "string",
            "x-enum-varnames": [
                "KindApprove",
                "KindUnapprove",
                "KindDelete",
                "KindBulkApprove",
                "KindBulkUnapprove",
                "KindBulkDelete"
            ]
        },
        "domain.Notification": {
            "properties": {
                "created_at": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "kind": {
                    "$ref": "#/definitions/domain.MutationKind"
                },
                "level": {
                    "$ref": "#/definitions/domain.NotificationLevel"
                },
                "mutation_id": {
                    "type": "string"
                },
                "text": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                }
            },
            "type": "object"
        },
        "domain.NotificationLevel": {
            "enum": [
                "success",
                "warning",
                "error"
            ],
            "type": "string",
            "x-enum-varnames": [
                "LevelSuccess",
                "LevelWarning",
                "LevelError"
            ]
        },
        "domain.Outcome": {
            "enum": [
                "pending",
                "success",
                "partialSuccess",
                "failure"
            ],
            "type": "string",
            "x-enum-varnames": [
                "OutcomePending",
                "OutcomeSuccess",
                "OutcomePartialSuccess",
                "OutcomeFailure"
            ]
        },
        "domain.QueryKey": {
            "properties": {
                "entity": {
                    "$ref": "#/definitions/domain.EntityType"
                },
                "signature": {
                    "example": "approved=false&page=1",
                    "type": "string"
                }
            },
            "type": "object"
        },
        "domain.Recipe": {
            "properties": {
                "approved": {
                    "type": "boolean"
                },
                "createdAt": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "rating": {
                    "type": "number"
                }
            },
            "type": "object"
        },
        "domain.RecipePage": {
            "properties": {
                "recipes": {
                    "items": {
                        "$ref": "#/definitions/domain.Recipe"
                    },
                    "type": "array"
                },
                "total": {
                    "type": "integer"
                }
            },
            "type": "object"
        },
        "domain.Resource": {
            "enum": [
                "recipe",
                "meal-plan"
            ],
            "type": "string",
            "x-enum-varnames": [
                "ResourceRecipe",
                "ResourceMealPlan"
            ]
        },
        "domain.Stats": {
            "properties": {
                "approved": {
                    "type": "integer"
                },
                "avgRating": {
                    "type": "number"
                },
                "pending": {
                    "type": "integer"
                },
                "total": {
                    "type": "integer"
                }
            },
            "type": "object"
        },
        "handlers.BulkOperationRequest": {
            "properties": {
                "affected_count": {
                    "example": 7,
                    "type": "integer"
                },
                "operation": {
                    "$ref": "#/definitions/domain.BulkOp"
                },
                "resource": {
                    "$ref": "#/definitions/domain.Resource"
                }
            },
            "required": [
                "operation"
            ],
            "type": "object"
        },
        "handlers.BulkSelectionRequest": {
            "properties": {
                "ids": {
                    "example": [
                        "r1",
                        "r2",
                        "r3"
                    ],
                    "items": {
                        "type": "string"
                    },
                    "type": "array"
                },
                "mealPlanIds": {
                    "items": {
                        "type": "string"
                    },
                    "type": "array"
                },
                "recipeIds": {
                    "items": {
                        "type": "string"
                    },
                    "type": "array"
                }
            },
            "type": "object"
        },
        "handlers.CacheEntriesResponse": {
            "properties": {
                "entries": {
                    "items": {
                        "$ref": "#/definitions/handlers.CacheEntry"
                    },
                    "type": "array"
                }
            },
            "type": "object"
        },
        "handlers.CacheEntry": {
            "properties": {
                "error": {
                    "type": "string"
                },
                "fetched_at": {
                    "type": "string"
                },
                "key": {
                    "example": "recipe-list?approved=false&page=1",
                    "type": "string"
                },
                "status": {
                    "$ref": "#/definitions/querystore.Status"
                }
            },
            "type": "object"
        },
        "handlers.ErrorResponse": {
            "properties": {
                "code": {
                    "example": "not_found",
                    "type": "string"
                },
                "message": {
                    "example": "resource not found",
                    "type": "string"
                },
                "request_id": {
                    "example": "123e4567-e89b-12d3-a456-426614174000",
                    "type": "string"
                }
            },
            "type": "object"
        },
        "handlers.InvalidateRequest": {
            "properties": {
                "resource": {
                    "$ref": "#/definitions/domain.Resource"
                }
            },
            "type": "object"
        },
        "handlers.InvalidationResponse": {
            "properties": {
                "marked_stale": {
                    "example": 4,
                    "type": "integer"
                },
                "refetches": {
                    "example": 2,
                    "type": "integer"
                },
                "resource": {
                    "$ref": "#/definitions/domain.Resource"
                }
            },
            "type": "object"
        },
        "handlers.ListNotificationsResponse": {
            "properties": {
                "notifications": {
                    "items": {
                        "$ref": "#/definitions/domain.Notification"
                    },
                    "type": "array"
                }
            },
            "type": "object"
        },
        "handlers.LogoutResponse": {
            "properties": {
                "unmounted": {
                    "example": 2,
                    "type": "integer"
                }
            },
            "type": "object"
        },
        "handlers.MountViewRequest": {
            "properties": {
                "key": {
                    "example": "recipe-list?approved=false&page=1",
                    "type": "string"
                },
                "refresh_seconds": {
                    "example": 30,
                    "type": "integer"
                }
            },
            "required": [
                "key"
            ],
            "type": "object"
        },
        "handlers.MutationResponse": {
            "properties": {
                "failed": {
                    "example": 3,
                    "type": "integer"
                },
                "kind": {
                    "$ref": "#/definitions/domain.MutationKind"
                },
                "mutation_id": {
                    "example": "6f1c7a52-3a36-4d89-9d2a-6b7c6c0d8e11",
                    "type": "string"
                },
                "notification": {
                    "$ref": "#/definitions/domain.Notification"
                },
                "outcome": {
                    "$ref": "#/definitions/domain.Outcome"
                },
                "replayed": {
                    "type": "boolean"
                },
                "succeeded": {
                    "example": 7,
                    "type": "integer"
                },
                "succeeded_ids": {
                    "items": {
                        "type": "string"
                    },
                    "type": "array"
                },
                "total": {
                    "example": 10,
                    "type": "integer"
                }
            },
            "type": "object"
        },
        "handlers.ViewsResponse": {
            "properties": {
                "views": {
                    "items": {
                        "$ref": "#/definitions/services.View"
                    },
                    "type": "array"
                }
            },
            "type": "object"
        },
        "querystore.Status": {
            "enum": [
                "idle",
                "loading",
                "fresh",
                "stale",
                "error"
            ],
            "type": "string",
            "x-enum-varnames": [
                "StatusIdle",
                "StatusLoading",
                "StatusFresh",
                "StatusStale",
                "StatusError"
            ]
        },
        "services.View": {
            "properties": {
                "id": {
                    "type": "string"
                },
                "key": {
                    "$ref": "#/definitions/domain.QueryKey"
                },
                "mounted_at": {
                    "type": "string"
                },
                "refresh_interval": {
                    "type": "integer"
                },
                "refreshing": {
                    "type": "boolean"
                },
                "user_id": {
                    "type": "string"
                }
            },
            "type": "object"
        }
    },
    "paths": {
        "/admin/cache/bulk": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "description": "A non-positive affected_count changed nothing and is a no-op.",
                "operationId": "handleBulkOperation",
                "parameters": [
                    {
                        "description": "Operation",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.BulkOperationRequest"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "$ref": "#/definitions/handlers.InvalidationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Invalidate after an external bulk operation",
                "tags": [
                    "Cache"
                ]
            }
        },
        "/admin/cache/entries": {
            "get": {
                "operationId": "cacheEntries",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.CacheEntriesResponse"
                        }
                    }
                },
                "summary": "Snapshot of the query cache",
                "tags": [
                    "Cache"
                ]
            }
        },
        "/admin/cache/invalidate": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "description": "Marks every cached query of the resource stale and refetches the active ones and the stats.",
                "operationId": "invalidateCache",
                "parameters": [
                    {
                        "description": "Resource (default recipe)",
                        "in": "body",
                        "name": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/handlers.InvalidateRequest"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "$ref": "#/definitions/handlers.InvalidationResponse"
                        }
                    },
                    "400": {
                        "description": "Unknown resource",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Invalidate a resource",
                "tags": [
                    "Cache"
                ]
            }
        },
        "/admin/meal-plans": {
            "delete": {
                "consumes": [
                    "application/json"
                ],
                "operationId": "bulkDeleteMealPlans",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Number of selected ids, used for rate-limit cost",
                        "in": "header",
                        "name": "X-Selection-Size",
                        "type": "string"
                    },
                    {
                        "description": "Selection",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.BulkSelectionRequest"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "207": {
                        "description": "Partial success",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Empty selection",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Every item failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Delete the selected meal plans",
                "tags": [
                    "MealPlans"
                ]
            },
            "get": {
                "operationId": "listMealPlans",
                "parameters": [
                    {
                        "description": "Approval filter",
                        "in": "query",
                        "name": "approved",
                        "type": "boolean"
                    },
                    {
                        "description": "Page number",
                        "in": "query",
                        "minimum": 0,
                        "name": "page",
                        "type": "integer"
                    },
                    {
                        "description": "Items per page",
                        "in": "query",
                        "minimum": 0,
                        "name": "limit",
                        "type": "integer"
                    },
                    {
                        "description": "Free-text search",
                        "in": "query",
                        "name": "search",
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {
                            "X-Cache-Fetched-At": {
                                "description": "RFC3339 fetch time",
                                "type": "string"
                            },
                            "X-Cache-Status": {
                                "description": "fresh, stale or error",
                                "type": "string"
                            }
                        },
                        "schema": {
                            "$ref": "#/definitions/domain.MealPlanPage"
                        }
                    },
                    "400": {
                        "description": "Invalid filter",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Upstream error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "List meal plans (cached)",
                "tags": [
                    "MealPlans"
                ]
            }
        },
        "/admin/meal-plans/bulk-approve": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "operationId": "bulkApproveMealPlans",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Number of selected ids, used for rate-limit cost",
                        "in": "header",
                        "name": "X-Selection-Size",
                        "type": "string"
                    },
                    {
                        "description": "Selection",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.BulkSelectionRequest"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "207": {
                        "description": "Partial success",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Empty selection",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Every item failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Approve the selected meal plans",
                "tags": [
                    "MealPlans"
                ]
            }
        },
        "/admin/meal-plans/bulk-unapprove": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "operationId": "bulkUnapproveMealPlans",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Number of selected ids, used for rate-limit cost",
                        "in": "header",
                        "name": "X-Selection-Size",
                        "type": "string"
                    },
                    {
                        "description": "Selection",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.BulkSelectionRequest"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "207": {
                        "description": "Partial success",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Empty selection",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Every item failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Unapprove the selected meal plans",
                "tags": [
                    "MealPlans"
                ]
            }
        },
        "/admin/meal-plans/stats": {
            "get": {
                "operationId": "mealPlanStats",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {
                            "X-Cache-Fetched-At": {
                                "description": "RFC3339 fetch time",
                                "type": "string"
                            },
                            "X-Cache-Status": {
                                "description": "fresh, stale or error",
                                "type": "string"
                            }
                        },
                        "schema": {
                            "$ref": "#/definitions/domain.Stats"
                        }
                    },
                    "502": {
                        "description": "Upstream error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Meal-plan counters (cached)",
                "tags": [
                    "MealPlans"
                ]
            }
        },
        "/admin/meal-plans/{id}": {
            "delete": {
                "operationId": "deleteMealPlan",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Meal plan ID",
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Mutation failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Delete a meal plan",
                "tags": [
                    "MealPlans"
                ]
            }
        },
        "/admin/meal-plans/{id}/approve": {
            "patch": {
                "operationId": "approveMealPlan",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Meal plan ID",
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Mutation failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Approve a meal plan",
                "tags": [
                    "MealPlans"
                ]
            }
        },
        "/admin/meal-plans/{id}/unapprove": {
            "patch": {
                "operationId": "unapproveMealPlan",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Meal plan ID",
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Mutation failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Unapprove a meal plan",
                "tags": [
                    "MealPlans"
                ]
            }
        },
        "/admin/recipes": {
            "delete": {
                "consumes": [
                    "application/json"
                ],
                "operationId": "bulkDeleteRecipes",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Number of selected ids, used for rate-limit cost",
                        "in": "header",
                        "name": "X-Selection-Size",
                        "type": "string"
                    },
                    {
                        "description": "Selection",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.BulkSelectionRequest"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "207": {
                        "description": "Partial success",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Empty selection",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Every item failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Delete the selected recipes",
                "tags": [
                    "Recipes"
                ]
            },
            "get": {
                "operationId": "listRecipes",
                "parameters": [
                    {
                        "description": "Approval filter",
                        "in": "query",
                        "name": "approved",
                        "type": "boolean"
                    },
                    {
                        "description": "Page number",
                        "in": "query",
                        "minimum": 0,
                        "name": "page",
                        "type": "integer"
                    },
                    {
                        "description": "Items per page",
                        "in": "query",
                        "minimum": 0,
                        "name": "limit",
                        "type": "integer"
                    },
                    {
                        "description": "Free-text search",
                        "in": "query",
                        "name": "search",
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {
                            "X-Cache-Fetched-At": {
                                "description": "RFC3339 fetch time",
                                "type": "string"
                            },
                            "X-Cache-Status": {
                                "description": "fresh, stale or error",
                                "type": "string"
                            }
                        },
                        "schema": {
                            "$ref": "#/definitions/domain.RecipePage"
                        }
                    },
                    "400": {
                        "description": "Invalid filter",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Upstream error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "List recipes (cached)",
                "tags": [
                    "Recipes"
                ]
            }
        },
        "/admin/recipes/bulk-approve": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "operationId": "bulkApproveRecipes",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Number of selected ids, used for rate-limit cost",
                        "in": "header",
                        "name": "X-Selection-Size",
                        "type": "string"
                    },
                    {
                        "description": "Selection",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.BulkSelectionRequest"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "207": {
                        "description": "Partial success",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Empty selection",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Every item failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Approve the selected recipes",
                "tags": [
                    "Recipes"
                ]
            }
        },
        "/admin/recipes/bulk-unapprove": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "operationId": "bulkUnapproveRecipes",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Number of selected ids, used for rate-limit cost",
                        "in": "header",
                        "name": "X-Selection-Size",
                        "type": "string"
                    },
                    {
                        "description": "Selection",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.BulkSelectionRequest"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "207": {
                        "description": "Partial success",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Empty selection",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Every item failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Unapprove the selected recipes",
                "tags": [
                    "Recipes"
                ]
            }
        },
        "/admin/recipes/{id}": {
            "delete": {
                "operationId": "deleteRecipe",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Recipe ID",
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Mutation failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Delete a recipe",
                "tags": [
                    "Recipes"
                ]
            }
        },
        "/admin/recipes/{id}/approve": {
            "patch": {
                "operationId": "approveRecipe",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Recipe ID",
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Mutation failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Approve a recipe",
                "tags": [
                    "Recipes"
                ]
            }
        },
        "/admin/recipes/{id}/unapprove": {
            "patch": {
                "operationId": "unapproveRecipe",
                "parameters": [
                    {
                        "description": "Bearer token forwarded upstream",
                        "in": "header",
                        "name": "Authorization",
                        "type": "string"
                    },
                    {
                        "description": "View the action was taken in",
                        "in": "header",
                        "name": "X-View-ID",
                        "type": "string"
                    },
                    {
                        "description": "Idempotency key for safe retries",
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string"
                    },
                    {
                        "description": "Recipe ID",
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.MutationResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Mutation failed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Unapprove a recipe",
                "tags": [
                    "Recipes"
                ]
            }
        },
        "/admin/stats": {
            "get": {
                "operationId": "recipeStats",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {
                            "X-Cache-Fetched-At": {
                                "description": "RFC3339 fetch time",
                                "type": "string"
                            },
                            "X-Cache-Status": {
                                "description": "fresh, stale or error",
                                "type": "string"
                            }
                        },
                        "schema": {
                            "$ref": "#/definitions/domain.Stats"
                        }
                    },
                    "502": {
                        "description": "Upstream error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Recipe counters (cached)",
                "tags": [
                    "Recipes"
                ]
            }
        },
        "/logout": {
            "post": {
                "operationId": "logout",
                "parameters": [
                    {
                        "description": "User ID (demo header)",
                        "in": "header",
                        "name": "X-User-ID",
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.LogoutResponse"
                        }
                    }
                },
                "summary": "Release every view of the caller",
                "tags": [
                    "Views"
                ]
            }
        },
        "/notifications": {
            "get": {
                "description": "Newest first. Supports weak ETag via If-None-Match and may return 304.",
                "operationId": "listNotifications",
                "parameters": [
                    {
                        "description": "User ID (demo header)",
                        "example": "user123",
                        "in": "header",
                        "name": "X-User-ID",
                        "type": "string"
                    },
                    {
                        "description": "Return 304 if ETag matches",
                        "in": "header",
                        "name": "If-None-Match",
                        "type": "string"
                    },
                    {
                        "description": "RFC3339; only newer notifications",
                        "in": "query",
                        "name": "since",
                        "type": "string"
                    },
                    {
                        "description": "Maximum items",
                        "in": "query",
                        "maximum": 200,
                        "minimum": 1,
                        "name": "limit",
                        "type": "integer"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {
                            "ETag": {
                                "description": "Weak ETag for current result",
                                "type": "string"
                            }
                        },
                        "schema": {
                            "$ref": "#/definitions/handlers.ListNotificationsResponse"
                        }
                    },
                    "304": {
                        "description": "Not Modified",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "List the caller's notifications",
                "tags": [
                    "Notifications"
                ]
            }
        },
        "/notifications/{id}": {
            "get": {
                "operationId": "getNotification",
                "parameters": [
                    {
                        "description": "User ID (demo header)",
                        "in": "header",
                        "name": "X-User-ID",
                        "type": "string"
                    },
                    {
                        "description": "Notification ID",
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.Notification"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Get one notification",
                "tags": [
                    "Notifications"
                ]
            }
        },
        "/views": {
            "get": {
                "operationId": "listViews",
                "parameters": [
                    {
                        "description": "User ID (demo header)",
                        "in": "header",
                        "name": "X-User-ID",
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.ViewsResponse"
                        }
                    }
                },
                "summary": "List the caller's mounted views",
                "tags": [
                    "Views"
                ]
            },
            "post": {
                "consumes": [
                    "application/json"
                ],
                "description": "Tracks the view's query key and refreshes it periodically until unmounted.",
                "operationId": "mountView",
                "parameters": [
                    {
                        "description": "User ID (demo header)",
                        "in": "header",
                        "name": "X-User-ID",
                        "type": "string"
                    },
                    {
                        "description": "View",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.MountViewRequest"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/services.View"
                        }
                    },
                    "400": {
                        "description": "Invalid key",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Session expired",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Mount a view",
                "tags": [
                    "Views"
                ]
            }
        },
        "/views/{id}": {
            "delete": {
                "operationId": "unmountView",
                "parameters": [
                    {
                        "description": "User ID (demo header)",
                        "in": "header",
                        "name": "X-User-ID",
                        "type": "string"
                    },
                    {
                        "description": "View ID",
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "View not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Unmount a view",
                "tags": [
                    "Views"
                ]
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Recipe Cache Sync API",
	Description:      "Cached admin reads, mutations with targeted invalidation, mounted views and mutation notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
