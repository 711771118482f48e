// Package logger holds the process-wide logger used by the binaries while
// they bootstrap. Library packages receive a primary.Logger explicitly.
package logger

import "gitlab.com/sysmon-2025.net/internal/adapter/logging"

var Logger = logging.NewZapLogger()

// SetDebug swaps the global logger for one at debug level.
func SetDebug(debug bool) {
	if debug {
		Logger = logging.NewZapLoggerWithLevel(true)
	}
}

func Info(msg string, args ...interface{}) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...interface{}) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger.Warn(msg, args...)
}

// Sync flushes the global logger; errors on stderr sync are ignored.
func Sync() {
	_ = Logger.Sync()
}
