// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket limiter that protects the
// upstream API from the mutations this service forwards. Reads are answered
// from the query cache, so safe methods can be exempted; bulk requests are
// charged by the size of their selection so a single call cannot flood the
// upstream with hundreds of per-id requests.
//
// Notes:
//   - Buckets live in memory. Several instances each enforce their own budget.
//   - Idempotent replays (flagged by IdempotencyValidator) never consume tokens.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// costFunc returns how many tokens a request consumes. Values below 1 count
// as 1.
type costFunc func(*gin.Context) int

// KeyByUserOrIP keys buckets by the caller (the "userID" context value or the
// X-User-ID header) and falls back to the client IP. Keys are prefixed so the
// two namespaces cannot collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		if s := c.GetHeader(HeaderUserID); s != "" {
			return "user:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

// CostBySelection charges bulk routes one token per perIDs selected ids, as
// reported by the X-Selection-Size header. Everything else costs 1.
func CostBySelection(perIDs int) costFunc {
	if perIDs <= 0 {
		perIDs = 1
	}
	return func(c *gin.Context) int {
		n, err := strconv.Atoi(c.GetHeader(HeaderSelectionSize))
		if err != nil || n <= perIDs {
			return 1
		}
		return (n + perIDs - 1) / perIDs
	}
}

// HeaderSelectionSize lets clients announce how many ids a bulk request
// carries.
const HeaderSelectionSize = "X-Selection-Size"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Idle buckets are evicted
// opportunistically every few thousand lookups.
//
// Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	costFn   costFunc
	exempt   map[string]struct{}
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
	now      func() time.Time
}

// RateLimitOption tunes a RateLimiter.
type RateLimitOption func(*RateLimiter)

// WithCost installs a per-request cost function.
func WithCost(fn costFunc) RateLimitOption {
	return func(rl *RateLimiter) { rl.costFn = fn }
}

// ExemptMethods skips limiting for the given HTTP methods.
func ExemptMethods(methods ...string) RateLimitOption {
	return func(rl *RateLimiter) {
		for _, m := range methods {
			rl.exempt[m] = struct{}{}
		}
	}
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst. A burst <= 0 is coerced to 1.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc, opts ...RateLimitOption) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		exempt:   map[string]struct{}{},
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
	for _, o := range opts {
		o(rl)
	}
	return rl
}

// getVisitor returns the limiter for key, creating it if absent. Eviction
// runs before the lookup so a stale bucket is dropped even when it is the one
// being requested.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (rl *RateLimiter) cost(c *gin.Context) int {
	n := 1
	if rl.costFn != nil {
		n = rl.costFn(c)
	}
	if n < 1 {
		n = 1
	}
	if n > rl.burst {
		// A request larger than the bucket could never pass.
		n = rl.burst
	}
	return n
}

// retryAfter estimates the whole seconds until n tokens are available.
func (rl *RateLimiter) retryAfter(lim *rate.Limiter, n int) int {
	if rl.rps <= 0 {
		return 60
	}
	missing := float64(n) - lim.TokensAt(rl.now())
	if missing <= 0 {
		return 1
	}
	return int(math.Ceil(missing / float64(rl.rps)))
}

// Handler enforces the limits. Denied requests get 429 with a Retry-After
// header and the standard error body:
//
//	{"request_id": "...", "code": "rate_limited", "message": "rate limit exceeded"}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		if _, ok := rl.exempt[c.Request.Method]; ok {
			c.Next()
			return
		}

		lim := rl.getVisitor(rl.keyFn(c))
		n := rl.cost(c)
		if lim.AllowN(rl.now(), n) {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(rl.retryAfter(lim, n)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
