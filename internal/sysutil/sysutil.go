// Package sysutil holds process-level helpers shared by cmd and config:
// logger setup, env flag parsing and instance identity.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the global zerolog level. Supported values
// (case-insensitive): debug, info, warn, error, fatal, panic. Anything else
// means info.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// ConfigureLogging installs the global logger: JSON lines on w, or a
// human-readable console writer when pretty is set. Every line carries the
// service name and instance id so logs from several replicas sharing one
// invalidation channel can be told apart.
func ConfigureLogging(w io.Writer, level string, pretty bool, service, instance string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Str("instance", instance).
		Logger()
	log.Logger = l
	return l
}

// IsTruthy reports whether an env value means true: "1", "true", "yes",
// "y" or "on" (case-insensitive).
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// IsFalsy is the negative counterpart of IsTruthy: "0", "false", "no", "n"
// or "off". Values that are neither leave the caller's default in place.
func IsFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// hostname is swapped in tests.
var hostname = os.Hostname

// InstanceID names this process on the invalidation bus. An explicit value
// wins; otherwise it is "<hostname>-<8 hex chars>", or just the random part
// when the hostname is unavailable. A fresh suffix per start keeps a
// restarted replica from being mistaken for its previous life.
func InstanceID(explicit string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	host, err := hostname()
	if err != nil {
		host = ""
	}
	host = strings.TrimSpace(host)
	generated := suffix
	if host != "" {
		generated = host + "-" + suffix
	}
	return strings.TrimSpace(FirstNonEmpty(explicit, generated))
}
