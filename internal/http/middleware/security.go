// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders. Besides the usual API hardening it
// keeps browsers and intermediaries from caching what this service already
// caches: reads are revalidated on every use (the query store decides
// freshness, not the browser), per-user resources stay out of shared caches,
// and mutation answers are never stored at all.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests only.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// NoStore forces Cache-Control: no-store on every response.
	NoStore bool
	// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
	// PrivatePrefixes lists route prefixes whose responses depend on the
	// caller (views, notifications). Only the caller's own cache may keep them.
	PrivatePrefixes []string
}

const (
	cacheNoStore    = "no-store"
	cachePrivate    = "private, no-cache"
	cacheRevalidate = "no-cache, must-revalidate"
)

// SecurityHeaders adds hardening and cache-control headers:
//
//   - always: X-Content-Type-Options: nosniff, X-Frame-Options: DENY,
//     Referrer-Policy: no-referrer
//   - EnablePolicy: Permissions-Policy and X-Permitted-Cross-Domain-Policies
//   - unsafe methods and NoStore: Cache-Control: no-store plus Pragma and
//     Expires for old proxies
//   - PrivatePrefixes: Cache-Control: private, no-cache
//   - other reads: Cache-Control: no-cache, must-revalidate and
//     Vary: X-User-ID
//   - EnableHSTS on HTTPS: Strict-Transport-Security
//
// X-Request-ID is appended to Access-Control-Expose-Headers when present.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		switch {
		case opt.NoStore || !isSafeMethod(c.Request.Method):
			h.Set("Cache-Control", cacheNoStore)
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		case hasPrefix(c.Request.URL.Path, opt.PrivatePrefixes):
			h.Set("Cache-Control", cachePrivate)
		default:
			h.Set("Cache-Control", cacheRevalidate)
			h.Add("Vary", HeaderUserID)
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, "X-Request-ID")
			} else if !strings.Contains(cur, "X-Request-ID") {
				h.Set(hdr, cur+", X-Request-ID")
			}
		}

		c.Next()
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// hasPrefix matches whole path segments, so "/views" covers "/views/1" but
// not "/viewsx".
func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// isHTTPS reports whether the request arrived over TLS directly or through a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
