// Package httpapi wires the HTTP transport (Gin) to the cache-sync services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/recipe-cache-sync/docs"
	"github.com/tbourn/recipe-cache-sync/internal/config"
	"github.com/tbourn/recipe-cache-sync/internal/http/handlers"
	"github.com/tbourn/recipe-cache-sync/internal/http/middleware"
	"github.com/tbourn/recipe-cache-sync/internal/repo"
	"github.com/tbourn/recipe-cache-sync/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
//
// cache is the cache-sync facade; db backs notifications and idempotency
// records.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cache *services.CacheService, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket limiter per user/IP on writes; reads are served from cache
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP(),
		middleware.ExemptMethods(http.MethodGet, http.MethodHead, http.MethodOptions),
		middleware.WithCost(middleware.CostBySelection(25)),
	)
	r.Use(rl.Handler())

	exposedHeaders := []string{
		"X-Request-ID", "Content-Length", "ETag",
		handlers.HeaderCacheStatus, handlers.HeaderCacheFetchedAt, handlers.HeaderReplayed,
	}

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, handlers.HeaderViewID, middleware.HeaderIdempotencyKey, middleware.HeaderSelectionSize, "If-None-Match"},
			ExposeHeaders:    exposedHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, handlers.HeaderViewID, middleware.HeaderIdempotencyKey, middleware.HeaderSelectionSize, "If-None-Match"},
			ExposeHeaders:    exposedHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
		PrivatePrefixes: []string{
			cfg.APIBasePath + "/views",
			cfg.APIBasePath + "/notifications",
		},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	notes := &services.NotificationService{
		DB:             db,
		DefaultLimit:   cfg.NotificationLimit,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	h := handlers.New(cache, notes)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		// Cached reads
		api.GET("/admin/recipes", h.ListRecipes)
		api.GET("/admin/stats", h.RecipeStats)
		api.GET("/admin/meal-plans", h.ListMealPlans)
		api.GET("/admin/meal-plans/stats", h.MealPlanStats)

		// Recipe mutations
		api.PATCH("/admin/recipes/:id/approve", h.ApproveRecipe)
		api.PATCH("/admin/recipes/:id/unapprove", h.UnapproveRecipe)
		api.DELETE("/admin/recipes/:id", h.DeleteRecipe)
		api.DELETE("/admin/recipes", h.BulkDeleteRecipes)
		api.POST("/admin/recipes/bulk-approve", h.BulkApproveRecipes)
		api.POST("/admin/recipes/bulk-unapprove", h.BulkUnapproveRecipes)

		// Meal-plan mutations
		api.PATCH("/admin/meal-plans/:id/approve", h.ApproveMealPlan)
		api.PATCH("/admin/meal-plans/:id/unapprove", h.UnapproveMealPlan)
		api.DELETE("/admin/meal-plans/:id", h.DeleteMealPlan)
		api.DELETE("/admin/meal-plans", h.BulkDeleteMealPlans)
		api.POST("/admin/meal-plans/bulk-approve", h.BulkApproveMealPlans)
		api.POST("/admin/meal-plans/bulk-unapprove", h.BulkUnapproveMealPlans)

		// Cache control
		api.POST("/admin/cache/invalidate", h.InvalidateCache)
		api.POST("/admin/cache/bulk", h.HandleBulkOperation)
		api.GET("/admin/cache/entries", h.CacheEntries)

		// Views
		api.GET("/views", h.ListViews)
		api.POST("/views", h.MountView)
		api.DELETE("/views/:id", h.UnmountView)
		api.POST("/logout", h.Logout)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/:id", h.GetNotification)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
