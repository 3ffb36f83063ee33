// Package log provides the structured logging interface used across gbtune.
//
// The interface is slog-compatible (message plus alternating key/value
// fields) and is backed by zerolog. Search stages derive contextual loggers
// with With so every record of a cross-validation cell carries its
// configuration, repeat and fold.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("model_selection").With(
//	    log.ConfigIndexKey, 3,
//	    log.RepeatKey, 0,
//	)
//	logger.Info("Fold scored",
//	    log.FoldKey, 2,
//	    log.AUCKey, 0.91,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with log/slog.
type Logger interface {
	// Debug logs detailed diagnostic information, e.g. one record per CV cell.
	Debug(msg string, fields ...any)

	// Info logs operational milestones of a search run.
	Info(msg string, fields ...any)

	// Warn logs conditions the run recovers from, such as fold failures.
	//
	// Example:
	//   logger.Warn("Configuration excluded",
	//       log.ConfigIndexKey, 4,
	//       log.FailuresKey, 2,
	//   )
	Warn(msg string, fields ...any)

	// Error logs an error condition. When the first field is an error it is
	// attached as the error attribute together with its stack trace.
	//
	// Example:
	//   logger.Error("Final refit failed",
	//       err,
	//       log.OperationKey, log.OperationFit,
	//   )
	Error(msg string, fields ...any)

	// With returns a Logger that includes fields in every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level are emitted. Use it to skip
	// building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. The package-level functions delegate to the
// installed provider so tests can swap in a TestLoggerProvider.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
