// Package logger wraps zerolog with the service fields and the event helpers
// shared by the orchestrator, the HTTP layer and the jobs.
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

const LoggerKey contextKey = "logger"

type Logger struct {
	*zerolog.Logger
}

var (
	outputMu sync.RWMutex
	output   io.Writer = os.Stdout
)

// New creates a logger for service writing to the output chosen by SetupLogger
func New(service string) *Logger {
	outputMu.RLock()
	w := output
	outputMu.RUnlock()
	return NewWithWriter(service, w)
}

// NewWithWriter creates a logger that writes to w
func NewWithWriter(service string, w io.Writer) *Logger {
	hostname, _ := os.Hostname()

	logger := zerolog.New(w).
		With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname).
		Str("environment", getEnv("ENVIRONMENT", "development")).
		Str("version", getEnv("SERVICE_VERSION", "unknown")).
		Logger()

	return &Logger{&logger}
}

// Nop discards everything
func Nop() *Logger {
	logger := zerolog.Nop()
	return &Logger{&logger}
}

// WithContext returns the logger stored in ctx, or a new one for service
func WithContext(ctx context.Context, service string) *Logger {
	if logger, ok := ctx.Value(LoggerKey).(*Logger); ok {
		return logger
	}
	return New(service)
}

func (l *Logger) ToContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// WithRequestID adds request/correlation ID for tracing
func (l *Logger) WithRequestID(requestID string) *Logger {
	logger := l.Logger.With().Str("request_id", requestID).Logger()
	return &Logger{&logger}
}

// WithJob adds job context for cron jobs
func (l *Logger) WithJob(jobName string) *Logger {
	logger := l.Logger.With().
		Str("job_name", jobName).
		Str("job_type", "cron").
		Logger()
	return &Logger{&logger}
}

// WithTrigger tags orchestrator logs with initial, manual or silent
func (l *Logger) WithTrigger(trigger string) *Logger {
	logger := l.Logger.With().Str("trigger", trigger).Logger()
	return &Logger{&logger}
}

func (l *Logger) LogBackendCall(operation string, useSearch bool, thinkingBudget int, duration time.Duration, err error) {
	event := l.Info()
	if err != nil {
		event = l.Warn().Err(err)
	}

	event.
		Str("action", "backend_call").
		Str("operation", operation).
		Bool("search", useSearch).
		Int("thinking_budget", thinkingBudget).
		Dur("duration", duration).
		Bool("success", err == nil).
		Msg("Generative backend call")
}

func (l *Logger) LogLoadComplete(outcome string, duration time.Duration, matches int, degraded bool) {
	l.Info().
		Str("action", "load_complete").
		Str("outcome", outcome).
		Dur("duration", duration).
		Int("matches", matches).
		Bool("degraded", degraded).
		Msg("Data load finished")
}

func (l *Logger) LogJobStart(jobName string, schedule string) {
	l.Info().
		Str("action", "job_start").
		Str("job_name", jobName).
		Str("schedule", schedule).
		Msg("Starting job execution")
}

func (l *Logger) LogJobComplete(jobName string, duration time.Duration, itemsProcessed int, errors int) {
	l.Info().
		Str("action", "job_complete").
		Str("job_name", jobName).
		Dur("duration", duration).
		Int("items_processed", itemsProcessed).
		Int("error_count", errors).
		Bool("has_errors", errors > 0).
		Msg("Job execution completed")
}

// LogAPICall logs calls to third-party HTTP APIs other than the model
func (l *Logger) LogAPICall(method, url string, statusCode int, duration time.Duration, err error) {
	event := l.Debug()
	if err != nil {
		event = l.Warn().Err(err)
	}

	event.
		Str("action", "api_call").
		Str("method", method).
		Str("url", url).
		Int("status_code", statusCode).
		Dur("duration", duration).
		Bool("success", err == nil).
		Msg("External API call")
}

func (l *Logger) LogStoreOperation(operation string, key string, duration time.Duration, err error) {
	event := l.Debug()
	if err != nil {
		event = l.Error().Err(err)
	}

	event.
		Str("action", "store_operation").
		Str("operation", operation).
		Str("key", key).
		Dur("duration", duration).
		Bool("success", err == nil).
		Msg("Store operation")
}

// SetupLogger applies LOG_LEVEL and, in development, switches New to a
// console writer. Call it before creating loggers.
func SetupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "@timestamp" // ELK compatible

	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if getEnv("ENVIRONMENT", "development") == "development" {
		outputMu.Lock()
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		outputMu.Unlock()
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
