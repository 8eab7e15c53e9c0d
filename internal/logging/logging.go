// Package logging provides structured logging configured from environment
// variables.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// NewWithWriter creates a logger that writes to w.
func NewWithWriter(w io.Writer) *log.Logger {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	switch os.Getenv("STRATA_LOG_LEVEL") {
	case "debug":
		lg.SetLevel(log.DebugLevel)
	case "warn":
		lg.SetLevel(log.WarnLevel)
	case "error":
		lg.SetLevel(log.ErrorLevel)
	default:
		lg.SetLevel(log.InfoLevel)
	}

	prefix := os.Getenv("STRATA_LOG_PREFIX")
	if prefix == "" {
		prefix = "strata"
	}
	return lg.WithPrefix(prefix)
}

// New creates a logger on stderr.
// STRATA_LOG_LEVEL: debug, info, warn, error (default: info)
// STRATA_LOG_PREFIX: message prefix (default: "strata")
func New() *log.Logger {
	return NewWithWriter(os.Stderr)
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	return os.Getenv("STRATA_LOG_LEVEL") == "debug"
}
