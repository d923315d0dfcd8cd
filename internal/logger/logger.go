// Package logger wraps zap and exposes the tool-wide logging helpers.
package logger

import (
	"fmt"
	"path/filepath"

	"github.com/octools/go-biospatch/internal/common/fsutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Global logger instance
var Logger *zap.SugaredLogger

// Config controls logger construction.
type Config struct {
	Debug     bool   // Enable debug level logging
	LogFormat string // "json" or "human"
	LogFile   string // Path to log file (optional)
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Debug:     false,
		LogFormat: "human",
		LogFile:   "",
	}
}

// Init builds the global logger from config.
func Init(cfg Config) error {
	var zapConfig zap.Config

	if cfg.LogFormat == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputPaths := []string{"stdout"}
	if cfg.LogFile != "" {
		logDir := filepath.Dir(cfg.LogFile)
		if err := fsutil.CreateDirIfNotExists(logDir); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		outputPaths = append(outputPaths, cfg.LogFile)
	}
	zapConfig.OutputPaths = outputPaths

	if cfg.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	built, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	Logger = built.Sugar()
	return nil
}

// L returns the global logger, building a no-op fallback if Init was never
// called (tests and library use).
func L() *zap.SugaredLogger {
	if Logger == nil {
		Logger = zap.NewNop().Sugar()
	}
	return Logger
}

func LogInfo(message string, fields map[string]interface{}) {
	L().Infow(message, flattenFields(fields)...)
}

func LogWarn(message string, fields map[string]interface{}) {
	L().Warnw(message, flattenFields(fields)...)
}

func LogError(message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	L().Errorw(message, flattenFields(fields)...)
}

func LogDebug(message string, fields map[string]interface{}) {
	L().Debugw(message, flattenFields(fields)...)
}

// WithField returns a logger with a field added to every log entry.
func WithField(key string, value interface{}) *zap.SugaredLogger {
	return L().With(key, value)
}

func flattenFields(fields map[string]interface{}) []interface{} {
	var flat []interface{}
	for k, v := range fields {
		flat = append(flat, k, v)
	}
	return flat
}

// Sync flushes any buffered log entries.
func Sync() error {
	if Logger == nil {
		return nil
	}
	return Logger.Sync()
}
