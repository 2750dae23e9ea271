// Notification HTTP handlers.
//
// This file exposes the caller's mutation outcomes:
//   - GET /notifications       (newest first, ETag support)
//   - GET /notifications/{id}
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/services"
	"github.com/tbourn/recipe-cache-sync/internal/utils"
)

// ListNotificationsResponse wraps the caller's notifications.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

func secondsToDuration(n int) time.Duration { return time.Duration(n) * time.Second }

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List the caller's notifications
// @Description Newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       since          query   string  false "RFC3339; only newer notifications"
// @Param       limit          query   int     false "Maximum items"  minimum(1) maximum(200)
//
// @Success     200  {object} handlers.ListNotificationsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	if h.notes == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "notifications disabled")
		return
	}
	ctx := c.Request.Context()
	uid := userID(c)

	var since time.Time
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "since must be RFC3339")
			return
		}
		since = t
	}
	limit, err := utils.ParseBounded(c.Query("limit"), 0, 1, 200)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "limit must be between 1 and 200")
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := h.notes.Stats(ctx, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"notifications:%s:%d:%d"`, uid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.notes.List(ctx, uid, since, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: items})
}

// GetNotification godoc
// @ID          getNotification
// @Summary     Get one notification
// @Tags        Notifications
// @Produce     json
// @Param       id  path  string  true  "Notification ID"  format(uuid)
// @Success     200  {object} domain.Notification
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Router      /notifications/{id} [get]
func (h *Handlers) GetNotification(c *gin.Context) {
	if h.notes == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "notifications disabled")
		return
	}
	n, err := h.notes.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, n)
}
