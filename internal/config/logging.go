package config

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rshade/stagehand/internal/logging"
)

// Logger is the global zerolog logger instance.
//
//nolint:gochecknoglobals // Logger is intentionally global for application-wide structured logging
var Logger zerolog.Logger

// logMu protects concurrent access to Logger.
//
//nolint:gochecknoglobals // Guards the global logger state
var logMu sync.RWMutex

// InitLogger initializes the package-level Logger from cfg and installs it as the
// fallback returned by logging.FromContext. The returned result owns the log file
// handle, if any, and must be closed by the caller.
func InitLogger(cfg LoggingConfig) logging.LogPathResult {
	logMu.Lock()
	defer logMu.Unlock()

	result := logging.NewLoggerWithPath(cfg.ToLoggingConfig())
	Logger = result.Logger
	logging.SetDefault(Logger)
	return result
}

// SetLogLevel sets the package global Logger's level to the value parsed from level.
// If the provided level cannot be parsed, the logger level is set to zerolog.InfoLevel.
func SetLogLevel(level string) {
	logMu.Lock()
	defer logMu.Unlock()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	Logger = Logger.Level(lvl)
	logging.SetDefault(Logger)
}

// GetLogger returns the global logger instance.
func GetLogger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return Logger
}

// ToLoggingConfig converts LoggingConfig to logging.Config.
//
// The conversion applies these rules:
//   - Level, Format are copied directly
//   - If File is set, Output becomes "file" and File is passed through
//   - If File is empty, Output defaults to "stderr"
func (lc LoggingConfig) ToLoggingConfig() logging.Config {
	output := logging.OutputStderr
	if lc.File != "" {
		output = logging.OutputFile
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
	}
}

// GetLoggingConfig returns the Logging section of the global configuration.
func GetLoggingConfig() LoggingConfig {
	cfg := GetGlobalConfig()
	return cfg.Logging
}

//nolint:gochecknoinits // package-level logger must be usable before configuration is loaded
func init() {
	Logger = logging.Default()
}
