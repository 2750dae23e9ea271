// Package handlers exposes the cache-sync layer over HTTP.
//
// Endpoints fall in four groups:
//   - reads:         recipe / meal-plan lists and stats, served through the
//     query store
//   - mutations:     single and bulk approve / unapprove / delete, forwarded
//     upstream and followed by the invalidation pass
//   - cache control: explicit invalidation, externally resolved bulk
//     operations, mounted views
//   - notifications: the per-user outcome feed
//
// Handlers are transport-thin: they validate input, call the cache-sync
// facade, and translate results into HTTP responses.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/http/middleware"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
	"github.com/tbourn/recipe-cache-sync/internal/services"
)

//
// Service contracts (context-aware)
//

// CacheSync is the cache-sync facade consumed by the handlers.
//
// Implementations should be safe for concurrent use. *services.CacheService
// satisfies it.
type CacheSync interface {
	// Get reads key through the query store.
	Get(ctx context.Context, key domain.QueryKey) (querystore.Entry, error)
	// Entries snapshots every cached entry.
	Entries() []querystore.Entry

	// Execute runs one single-entity mutation.
	Execute(ctx context.Context, req services.MutationRequest) (*services.Resolution, error)
	// RunBulk runs one bulk mutation on a selection.
	RunBulk(ctx context.Context, req services.BulkRequest) (*services.BulkResult, error)

	// InvalidateResource marks every key of res stale and refetches the
	// active ones.
	InvalidateResource(ctx context.Context, res domain.Resource) *querystore.Dispatch
	// HandleResourceBulkOperation runs the invalidation pass for a bulk
	// operation resolved elsewhere.
	HandleResourceBulkOperation(ctx context.Context, res domain.Resource, op domain.BulkOp, affectedCount int) (*querystore.Dispatch, error)

	MountView(ctx context.Context, spec services.ViewSpec) (*services.View, error)
	UnmountView(id string) error
	Logout(userID string) int
	View(id string) (*services.View, bool)
	Views(userID string) []services.View
	ActiveKey(id string) *domain.QueryKey
}

// NotificationService is the notification feed and the idempotency store for
// mutation answers. *services.NotificationService satisfies it.
type NotificationService interface {
	List(ctx context.Context, userID string, since time.Time, limit int) ([]domain.Notification, error)
	Get(ctx context.Context, userID, id string) (*domain.Notification, error)
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
	// Replay returns the answer remembered for (userID, scope, key).
	Replay(ctx context.Context, userID, scope, key string) (*domain.Notification, int, error)
	// Remember binds an answer to (userID, scope, key).
	Remember(ctx context.Context, userID, scope, key, notificationID string, status int) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the service.
type Handlers struct {
	cache CacheSync
	notes NotificationService
}

// New constructs a Handlers bound to the given services. notes may be nil,
// which disables the notification feed and idempotent replay.
func New(cache CacheSync, notes NotificationService) *Handlers {
	return &Handlers{cache: cache, notes: notes}
}

const (
	// HeaderViewID names the view the caller is acting in. Its query key
	// becomes the mutation's active key.
	HeaderViewID = middleware.HeaderViewID
	// HeaderCacheStatus reports the query store status of a read.
	HeaderCacheStatus = middleware.HeaderCacheStatus
	// HeaderCacheFetchedAt reports when the served data was fetched.
	HeaderCacheFetchedAt = "X-Cache-Fetched-At"
	// HeaderReplayed marks a response served from a remembered answer.
	HeaderReplayed = "Idempotency-Replayed"
)

// userID extracts the caller from the Gin context, the X-User-ID header, or
// falls back to "demo-user".
func userID(c *gin.Context) string {
	return middleware.UserIDFromCtx(c)
}

// authToken returns the caller's bearer token, if any. Mutations are sent
// upstream with it so the upstream API authorizes the actual admin.
func authToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// activeKey resolves the X-View-ID header to the view's query key. Unknown
// or foreign views yield nil.
func (h *Handlers) activeKey(c *gin.Context) *domain.QueryKey {
	id := strings.TrimSpace(c.GetHeader(HeaderViewID))
	if id == "" {
		return nil
	}
	v, ok := h.cache.View(id)
	if !ok || (v.UserID != "" && v.UserID != userID(c)) {
		return nil
	}
	return h.cache.ActiveKey(id)
}
