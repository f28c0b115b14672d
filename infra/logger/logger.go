package logger

import corelogger "github.com/kilianp07/oncall/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards every message.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The output format follows
// Configure, or the APP_ENV variable when no format was configured.
func New(component string) Logger {
	return NewZerologLogger(component)
}
