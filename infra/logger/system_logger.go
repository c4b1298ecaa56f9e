package logger

import (
	"context"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/onwards-ai/xboard-payments/infra/opensearch"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

var levelOrder = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// ParseLevel maps a level name onto a LogLevel, defaulting to info
func ParseLevel(s string) LogLevel {
	l := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelOrder[l]; ok {
		return l
	}
	return LevelInfo
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// SystemLog is the document mirrored into OpenSearch
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Component   string         `json:"component"`
	Function    string         `json:"function"`
	Provider    string         `json:"provider,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
}

// SystemLoggerConfig represents configuration for system logger
type SystemLoggerConfig struct {
	EnableConsole    bool
	EnableOpenSearch bool
	MinLevel         LogLevel
	Service          string
	Version          string
	Environment      string

	// FilePath enables a rotating JSON log file
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// LogContext holds contextual information for logging
type LogContext struct {
	Provider  string
	RequestID string
	Fields    map[string]any
}

// SystemLogger writes structured logs through zap and optionally mirrors them to OpenSearch
type SystemLogger struct {
	zl               *zap.Logger
	openSearchLogger *opensearch.Logger
	enableOpenSearch bool
	minLevel         LogLevel
	service          string
	version          string
	environment      string
}

// NewSystemLogger builds console and file cores from config
func NewSystemLogger(openSearchLogger *opensearch.Logger, config SystemLoggerConfig) *SystemLogger {
	level := config.MinLevel.zapLevel()

	var cores []zapcore.Core
	if config.EnableConsole {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level))
	}
	if config.FilePath != "" {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		writer := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level))
	}

	sl := NewSystemLoggerWithCore(zapcore.NewTee(cores...), config)
	sl.openSearchLogger = openSearchLogger
	sl.enableOpenSearch = config.EnableOpenSearch && openSearchLogger != nil
	return sl
}

// NewSystemLoggerWithCore wraps an existing zap core, used by tests with an observer
func NewSystemLoggerWithCore(core zapcore.Core, config SystemLoggerConfig) *SystemLogger {
	if config.MinLevel == "" {
		config.MinLevel = LevelInfo
	}
	zl := zap.New(core).With(
		zap.String("service", config.Service),
		zap.String("version", config.Version),
		zap.String("environment", config.Environment),
	)
	return &SystemLogger{
		zl:          zl,
		minLevel:    config.MinLevel,
		service:     config.Service,
		version:     config.Version,
		environment: config.Environment,
	}
}

// Debug logs a debug message
func (sl *SystemLogger) Debug(message string, ctx ...LogContext) {
	sl.log(LevelDebug, message, nil, ctx...)
}

// Info logs an info message
func (sl *SystemLogger) Info(message string, ctx ...LogContext) {
	sl.log(LevelInfo, message, nil, ctx...)
}

// Warn logs a warning message
func (sl *SystemLogger) Warn(message string, ctx ...LogContext) {
	sl.log(LevelWarn, message, nil, ctx...)
}

// Error logs an error message
func (sl *SystemLogger) Error(message string, err error, ctx ...LogContext) {
	sl.log(LevelError, message, err, ctx...)
}

// Fatal logs a fatal message and exits
func (sl *SystemLogger) Fatal(message string, err error, ctx ...LogContext) {
	sl.log(LevelFatal, message, err, ctx...)
	os.Exit(1)
}

// Sync flushes buffered entries
func (sl *SystemLogger) Sync() error {
	return sl.zl.Sync()
}

// log is the core logging function
func (sl *SystemLogger) log(level LogLevel, message string, err error, ctx ...LogContext) {
	if !sl.shouldLog(level) {
		return
	}

	component, function := "unknown", "unknown"
	if pc, file, _, ok := runtime.Caller(3); ok {
		component = extractComponent(file)
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = fn.Name()
			if idx := strings.LastIndex(function, "."); idx != -1 {
				function = function[idx+1:]
			}
		}
	}

	entry := SystemLog{
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		Component:   component,
		Function:    function,
		Environment: sl.environment,
		Service:     sl.service,
		Version:     sl.version,
	}
	if len(ctx) > 0 {
		entry.Provider = ctx[0].Provider
		entry.RequestID = ctx[0].RequestID
		entry.Fields = ctx[0].Fields
	}
	if err != nil {
		entry.Error = err.Error()
	}

	// Fatal exits in Fatal itself, so zap only records it at error level.
	zlevel := level.zapLevel()
	if zlevel == zapcore.FatalLevel {
		zlevel = zapcore.ErrorLevel
	}
	if ce := sl.zl.Check(zlevel, message); ce != nil {
		ce.Write(zapFields(entry, err)...)
	}

	if sl.enableOpenSearch {
		go sl.logToOpenSearch(entry)
	}
}

func zapFields(entry SystemLog, err error) []zap.Field {
	fields := []zap.Field{zap.String("component", entry.Component)}
	if entry.Provider != "" {
		fields = append(fields, zap.String("provider", entry.Provider))
	}
	if entry.RequestID != "" {
		fields = append(fields, zap.String("request_id", entry.RequestID))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, entry.Fields[k]))
	}
	return fields
}

// shouldLog checks if the log level should be logged
func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	return levelOrder[level] >= levelOrder[sl.minLevel]
}

// extractComponent turns a source path into a package path,
// e.g. /src/xboard-payments/provider/hitpay/hitpay.go -> provider/hitpay
func extractComponent(file string) string {
	parts := strings.Split(file, "/")

	for i, part := range parts {
		if part == "xboard-payments" && i+1 < len(parts) {
			if i+2 < len(parts)-1 {
				return parts[i+1] + "/" + parts[i+2]
			}
			return parts[i+1]
		}
	}

	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}

	return "unknown"
}

// logToOpenSearch mirrors an entry asynchronously
func (sl *SystemLogger) logToOpenSearch(entry SystemLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sl.openSearchLogger.LogSystemEvent(ctx, entry); err != nil {
		log.Printf("Failed to log to OpenSearch: %v", err)
	}
}

// WithContext creates a new logger with context
func (sl *SystemLogger) WithContext(ctx LogContext) *ContextLogger {
	return &ContextLogger{
		systemLogger: sl,
		context:      ctx,
	}
}

// ContextLogger wraps SystemLogger with context
type ContextLogger struct {
	systemLogger *SystemLogger
	context      LogContext
}

// Debug logs a debug message with context
func (cl *ContextLogger) Debug(message string) {
	cl.systemLogger.Debug(message, cl.context)
}

// Info logs an info message with context
func (cl *ContextLogger) Info(message string) {
	cl.systemLogger.Info(message, cl.context)
}

// Warn logs a warning message with context
func (cl *ContextLogger) Warn(message string) {
	cl.systemLogger.Warn(message, cl.context)
}

// Error logs an error message with context
func (cl *ContextLogger) Error(message string, err error) {
	cl.systemLogger.Error(message, err, cl.context)
}

// AddField adds a field to the context
func (cl *ContextLogger) AddField(key string, value any) *ContextLogger {
	if cl.context.Fields == nil {
		cl.context.Fields = make(map[string]any)
	}
	cl.context.Fields[key] = value
	return cl
}

// SetProvider sets the provider in context
func (cl *ContextLogger) SetProvider(provider string) *ContextLogger {
	cl.context.Provider = provider
	return cl
}

// SetRequestID sets the request ID in context
func (cl *ContextLogger) SetRequestID(requestID string) *ContextLogger {
	cl.context.RequestID = requestID
	return cl
}
