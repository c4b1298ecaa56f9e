package logger

import (
	"sync"

	"github.com/onwards-ai/xboard-payments/infra/config"
	"github.com/onwards-ai/xboard-payments/infra/opensearch"
)

const (
	serviceName    = "xboard-payments"
	serviceVersion = "1.0.0"
)

var (
	globalLogger *SystemLogger
	mu           sync.RWMutex
	once         sync.Once
)

// InitGlobalLogger initializes the global system logger from the app config
func InitGlobalLogger(openSearchLogger *opensearch.Logger, appCfg *config.AppConfig) {
	once.Do(func() {
		cfg := SystemLoggerConfig{
			EnableConsole:    true,
			EnableOpenSearch: openSearchLogger != nil,
			MinLevel:         ParseLevel(appCfg.LoggingLevel),
			Service:          serviceName,
			Version:          serviceVersion,
			Environment:      appCfg.Environment,
			FilePath:         appCfg.LogFile,
			MaxSizeMB:        appCfg.LogMaxSizeMB,
			MaxBackups:       appCfg.LogMaxBackups,
			MaxAgeDays:       appCfg.LogMaxAgeDays,
			Compress:         true,
		}

		if cfg.Environment == "development" {
			cfg.MinLevel = LevelDebug
		}

		SetGlobalLogger(NewSystemLogger(openSearchLogger, cfg))
	})
}

// SetGlobalLogger replaces the global logger
func SetGlobalLogger(l *SystemLogger) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = l
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *SystemLogger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	// Console-only fallback when not initialized
	l = NewSystemLogger(nil, SystemLoggerConfig{
		EnableConsole: true,
		MinLevel:      LevelInfo,
		Service:       serviceName,
		Version:       serviceVersion,
		Environment:   "development",
	})
	mu.Lock()
	if globalLogger == nil {
		globalLogger = l
	}
	l = globalLogger
	mu.Unlock()
	return l
}

// Debug logs a debug message using the global logger
func Debug(message string, ctx ...LogContext) {
	GetGlobalLogger().Debug(message, ctx...)
}

// Info logs an info message using the global logger
func Info(message string, ctx ...LogContext) {
	GetGlobalLogger().Info(message, ctx...)
}

// Warn logs a warning message using the global logger
func Warn(message string, ctx ...LogContext) {
	GetGlobalLogger().Warn(message, ctx...)
}

// Error logs an error message using the global logger
func Error(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().Error(message, err, ctx...)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().Fatal(message, err, ctx...)
}

// WithContext creates a context logger from the global logger
func WithContext(ctx LogContext) *ContextLogger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithProvider creates a context logger with provider
func WithProvider(provider string) *ContextLogger {
	return WithContext(LogContext{Provider: provider})
}

// WithRequest creates a context logger with provider and request id
func WithRequest(provider, requestID string) *ContextLogger {
	return WithContext(LogContext{Provider: provider, RequestID: requestID})
}
