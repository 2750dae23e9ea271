// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request correlation pieces:
//
//   - RequestID() reuses or generates X-Request-ID and stores it in the context.
//   - Recovery() turns panics into the standard JSON 500 body.
//   - LoggerFrom() returns the request-scoped logger that RedactingLogger
//     attaches, so handlers and services can log with the request's
//     correlation fields (e.g. lg.Info().Str("recipe_id", id).Msg("…")).
//
// Recommended order: RequestID, RedactingLogger, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
	// maxQueryLogLength caps the raw query bytes written to logs.
	maxQueryLogLength = 2048
)

// HeaderViewID names the mounted view a request acts in.
const HeaderViewID = "X-View-ID"

// RequestID reuses the incoming X-Request-ID or generates a UUIDv4, echoes it
// on the response and stores it under "requestID".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation id stored by RequestID, falling back
// to the response and then the request X-Request-ID header.
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	if s := asString(v); s != "" {
		return s
	}
	if s := c.Writer.Header().Get(requestIDHeader); s != "" {
		return s
	}
	return c.GetHeader(requestIDHeader)
}

// attachRequestLogger derives a logger carrying the request's correlation
// fields and stores it for LoggerFrom. scrub is applied to caller-supplied
// identifiers.
func attachRequestLogger(c *gin.Context, route string, scrub func(string) string) *zerolog.Logger {
	lc := log.With().
		Str("request_id", RequestIDFrom(c)).
		Str("user_id", scrub(UserIDFromCtx(c))).
		Str("method", c.Request.Method).
		Str("path", route)
	if v := c.GetHeader(HeaderViewID); v != "" {
		lc = lc.Str("view_id", scrub(v))
	}
	l := lc.Logger()
	c.Set(loggerKey, &l)
	return &l
}

// Recovery intercepts panics, logs the stack with the request's correlation
// fields and, unless a response was already started, writes:
//
//	{"request_id": "...", "code": "internal_error", "message": "internal server error"}
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header("Content-Type", "application/json")
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// RedactingLogger is not installed. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes and appends an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
