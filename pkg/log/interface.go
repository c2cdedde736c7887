// Package log provides a structured logging interface for scistream ensemble operations.
//
// This package defines a minimal, slog-compatible logging interface so that the
// ensembles can log drift, replacement and failure events without committing to
// a backend. Two backends ship with the package: a log/slog one (SetupLogger)
// and a zerolog one (NewZerologLogger).
//
// Key features:
//   - slog-compatible interface
//   - Ensemble-specific structured attributes (member slots, detectors, pool actions)
//   - Context-aware logging with field chaining
//   - Test-friendly capture through TestLogger
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ModelNameKey, "OzaBagADWIN",
//	    log.EnsembleSizeKey, 10,
//	)
//	logger.Info("member reset after drift",
//	    log.MemberIndexKey, 3,
//	    log.EstimateKey, 0.41,
//	    log.ActionKey, log.ActionReset,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key-value pairs. If the first field passed
// to Error is an error value, backends attach it (and its stack) specially.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	// Per-instance training events go here; they are too frequent for Info.
	//
	// Example:
	//   logger.Debug("member trained",
	//       log.MemberIndexKey, 2,
	//       "multiplicity", 3,
	//   )
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	//
	// Example:
	//   logger.Info("chunk processed",
	//       log.ChunkKey, 12,
	//       log.BatchSizeKey, 500,
	//   )
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	// Drift signals and numeric fallbacks are logged at this level.
	//
	// Example:
	//   logger.Warn("drift detected",
	//       log.DetectorKey, "ADWIN",
	//       log.MemberIndexKey, 4,
	//   )
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	//
	// Example:
	//   logger.Error("member training failed",
	//       err,
	//       log.OperationKey, log.OperationTrain,
	//       log.MemberIndexKey, 2,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	//
	// Example:
	//   contextLogger := logger.With(
	//       log.ModelNameKey, "SRP",
	//       log.EnsembleSizeKey, 10,
	//   )
	//   contextLogger.Info("background learner created")
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	// Use it to skip building expensive fields on the hot training path.
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

// LoggerProvider defines an interface for creating and configuring loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a specific component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
