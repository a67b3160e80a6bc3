// Package logger provides the shared zap logger for the service.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It defaults to a no-op logger so library
// code can log before Init has run (e.g. in tests).
var Log = zap.NewNop()

// Init configures the global logger. With a log file it uses the production
// JSON encoder writing to both the file and stdout; without one it uses the
// development console encoder.
func Init(level string, logFile string) error {
	var config zap.Config

	if logFile != "" {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{logFile, "stdout"}
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	built, err := config.Build()
	if err != nil {
		return err
	}

	Log = built
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes buffered log entries.
func Sync() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}
