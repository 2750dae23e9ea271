// Cache-control HTTP handlers.
//
// This file exposes:
//   - POST   /admin/cache/invalidate  (invalidate a resource)
//   - POST   /admin/cache/bulk        (a bulk operation resolved elsewhere)
//   - GET    /views                   (the caller's mounted views)
//   - POST   /views                   (mount a view)
//   - DELETE /views/{id}              (unmount)
//   - POST   /logout                  (unmount every view of the caller)
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
	"github.com/tbourn/recipe-cache-sync/internal/services"
)

// InvalidateRequest selects the resource to invalidate. Empty means recipes.
type InvalidateRequest struct {
	Resource domain.Resource `json:"resource" example:"recipe"`
}

// BulkOperationRequest reports a bulk operation resolved outside this
// service.
type BulkOperationRequest struct {
	Operation     domain.BulkOp   `json:"operation"      binding:"required" example:"approve"`
	AffectedCount int             `json:"affected_count" example:"7"`
	Resource      domain.Resource `json:"resource,omitempty" example:"recipe"`
}

// InvalidationResponse summarizes an invalidation pass.
type InvalidationResponse struct {
	Resource    domain.Resource `json:"resource"     example:"recipe"`
	MarkedStale int             `json:"marked_stale" example:"4"`
	Refetches   int             `json:"refetches"    example:"2"`
}

// MountViewRequest is the JSON payload of POST /views.
type MountViewRequest struct {
	// Key is a query key string, e.g. "recipe-list?approved=false&page=1".
	Key string `json:"key" binding:"required" example:"recipe-list?approved=false&page=1"`
	// RefreshSeconds overrides the default refresh interval.
	RefreshSeconds int `json:"refresh_seconds,omitempty" example:"30"`
}

// ViewsResponse lists mounted views.
type ViewsResponse struct {
	Views []services.View `json:"views"`
}

// LogoutResponse reports how many views were released.
type LogoutResponse struct {
	Unmounted int `json:"unmounted" example:"2"`
}

func summarize(res domain.Resource, d *querystore.Dispatch) InvalidationResponse {
	out := InvalidationResponse{Resource: res}
	if d != nil {
		out.MarkedStale = d.MarkedStale
		out.Refetches = d.Refetches
	}
	return out
}

func resourceOrDefault(r domain.Resource) (domain.Resource, bool) {
	if r == "" {
		return domain.ResourceRecipe, true
	}
	return r, r.Valid()
}

// InvalidateCache godoc
// @ID          invalidateCache
// @Summary     Invalidate a resource
// @Description Marks every cached query of the resource stale and refetches the active ones and the stats.
// @Tags        Cache
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.InvalidateRequest  false  "Resource (default recipe)"
// @Success     202  {object} handlers.InvalidationResponse
// @Failure     400  {object} handlers.ErrorResponse "Unknown resource"
// @Router      /admin/cache/invalidate [post]
func (h *Handlers) InvalidateCache(c *gin.Context) {
	var req InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	res, valid := resourceOrDefault(req.Resource)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown resource")
		return
	}
	d := h.cache.InvalidateResource(c.Request.Context(), res)
	ok(c, http.StatusAccepted, summarize(res, d))
}

// HandleBulkOperation godoc
// @ID          handleBulkOperation
// @Summary     Invalidate after an external bulk operation
// @Description A non-positive affected_count changed nothing and is a no-op.
// @Tags        Cache
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.BulkOperationRequest  true  "Operation"
// @Success     202  {object} handlers.InvalidationResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /admin/cache/bulk [post]
func (h *Handlers) HandleBulkOperation(c *gin.Context) {
	var req BulkOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "operation required")
		return
	}
	res, valid := resourceOrDefault(req.Resource)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown resource")
		return
	}
	d, err := h.cache.HandleResourceBulkOperation(c.Request.Context(), res, req.Operation, req.AffectedCount)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "operation must be approve, unapprove or delete")
		return
	}
	ok(c, http.StatusAccepted, summarize(res, d))
}

// MountView godoc
// @ID          mountView
// @Summary     Mount a view
// @Description Tracks the view's query key and refreshes it periodically until unmounted.
// @Tags        Views
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       body       body    handlers.MountViewRequest  true  "View"
// @Success     201  {object} services.View
// @Failure     400  {object} handlers.ErrorResponse "Invalid key"
// @Failure     401  {object} handlers.ErrorResponse "Session expired"
// @Router      /views [post]
func (h *Handlers) MountView(c *gin.Context) {
	var req MountViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "key required")
		return
	}
	key, err := domain.ParseQueryKey(req.Key)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidFilter, "invalid query key")
		return
	}
	spec := services.ViewSpec{UserID: userID(c), Key: key}
	if req.RefreshSeconds > 0 {
		spec.RefreshInterval = secondsToDuration(req.RefreshSeconds)
	}
	v, err := h.cache.MountView(c.Request.Context(), spec)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAuthExpired):
			fail(c, http.StatusUnauthorized, ErrCodeAuthExpired, "upstream rejected the service credentials")
		case errors.Is(err, domain.ErrInvalidQueryKey):
			fail(c, http.StatusBadRequest, ErrCodeInvalidFilter, "invalid query key")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	c.Header("Location", strings.TrimSuffix(c.Request.URL.Path, "/")+"/"+v.ID)
	ok(c, http.StatusCreated, v)
}

// ListViews godoc
// @ID          listViews
// @Summary     List the caller's mounted views
// @Tags        Views
// @Produce     json
// @Success     200  {object} handlers.ViewsResponse
// @Router      /views [get]
func (h *Handlers) ListViews(c *gin.Context) {
	ok(c, http.StatusOK, ViewsResponse{Views: h.cache.Views(userID(c))})
}

// UnmountView godoc
// @ID          unmountView
// @Summary     Unmount a view
// @Tags        Views
// @Param       id  path  string  true  "View ID"  format(uuid)
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "View not found"
// @Router      /views/{id} [delete]
func (h *Handlers) UnmountView(c *gin.Context) {
	id := c.Param("id")
	if v, found := h.cache.View(id); !found || (v.UserID != "" && v.UserID != userID(c)) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "view not found")
		return
	}
	if err := h.cache.UnmountView(id); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "view not found")
		return
	}
	noContent(c)
}

// Logout godoc
// @ID          logout
// @Summary     Release every view of the caller
// @Tags        Views
// @Produce     json
// @Success     200  {object} handlers.LogoutResponse
// @Router      /logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	ok(c, http.StatusOK, LogoutResponse{Unmounted: h.cache.Logout(userID(c))})
}
