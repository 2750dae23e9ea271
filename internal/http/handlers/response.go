// Package handlers – response writers.
//
// Every endpoint answers through the helpers in this file:
//   - fail / Fail write the ErrorResponse envelope with a stable code.
//   - failMutation maps executor errors (auth_expired, no_selection,
//     mutation_failed) to their status and code.
//   - okCached writes a query-store entry with its X-Cache-Status and
//     X-Cache-Fetched-At headers.
//   - okMutation writes a MutationResponse: 200 for success, 207 when a bulk
//     operation only partly applied.
//
// Example partial-success response:
//
//	HTTP/1.1 207 Multi-Status
//	{ "kind": "bulkApprove", "outcome": "partialSuccess", "succeeded": 8, "failed": 2, "total": 10 }
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/http/middleware"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
	"github.com/tbourn/recipe-cache-sync/internal/services"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"mutation_failed"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"Recipe is referenced by an active meal plan"`
}

// fail aborts the request with an ErrorResponse. Server-side and upstream
// failures (>=500) are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail, used by the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failMutation maps executor and bulk coordinator errors to responses.
// A *MutationError carries the server's own message, which is passed through.
func failMutation(c *gin.Context, err error) {
	var me *services.MutationError
	switch {
	case errors.Is(err, services.ErrNoSelection):
		fail(c, http.StatusUnprocessableEntity, ErrCodeNoSelection, "select at least one item")
	case errors.Is(err, services.ErrInvalidMutation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrAuthExpired):
		fail(c, http.StatusUnauthorized, ErrCodeAuthExpired, "Your session has expired. Please sign in again.")
	case errors.As(err, &me):
		fail(c, http.StatusBadGateway, ErrCodeMutationFailed, me.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// okCached writes a store entry. refreshErr is the error of a refresh that
// failed while older data was available; the entry is then reported stale.
func okCached(c *gin.Context, e querystore.Entry, refreshErr error) {
	status := e.Status
	if refreshErr != nil {
		status = querystore.StatusStale
	}
	c.Header(HeaderCacheStatus, string(status))
	c.Header(HeaderCacheFetchedAt, e.FetchedAt.UTC().Format(time.RFC3339Nano))
	ok(c, http.StatusOK, e.Data)
}

// okMutation writes the outcome of a write and returns the status used.
func okMutation(c *gin.Context, resp MutationResponse) int {
	status := http.StatusOK
	if resp.Outcome == domain.OutcomePartialSuccess {
		status = http.StatusMultiStatus
	}
	if resp.Replayed {
		c.Header(HeaderReplayed, "true")
	}
	ok(c, status, resp)
	return status
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
