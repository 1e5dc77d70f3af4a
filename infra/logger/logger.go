package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/homecoming/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// SetLevel sets the global level from a name such as "debug" or "warn".
// Unknown names leave the level unchanged and return false.
func SetLevel(name string) bool {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return false
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return false
	}
	zerolog.SetGlobalLevel(lvl)
	return true
}

func init() {
	SetLevel(os.Getenv("LOG_LEVEL"))
}
