package logger

import (
	"fmt"
	"strings"
	"sync/atomic"

	corelogger "github.com/kilianp07/phasebalance/core/logger"
)

// Alias the core interface for convenience.
// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

var console atomic.Bool

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// Configure sets the process-wide minimum level ("debug", "info", "warn",
// "error") and output format ("json" or "console"). Empty values keep the
// current setting.
func Configure(level, format string) error {
	switch strings.ToLower(format) {
	case "":
	case "json":
		console.Store(false)
	case "console":
		console.Store(true)
	default:
		return fmt.Errorf("log format %q: want json or console", format)
	}
	return setGlobalLevel(level)
}
