package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
)

// Logger is the interface for structured logging.
// Context is passed as a parameter to each method so request scoped fields
// (cluster_id, region, view_id, trace_id) travel with the call.
type Logger interface {
	// Debug logs at debug level
	Debug(ctx context.Context, message string)
	// Debugf logs at debug level with formatting
	Debugf(ctx context.Context, format string, args ...interface{})
	// Info logs at info level
	Info(ctx context.Context, message string)
	// Infof logs at info level with formatting
	Infof(ctx context.Context, format string, args ...interface{})
	// Warn logs at warn level
	Warn(ctx context.Context, message string)
	// Warnf logs at warn level with formatting
	Warnf(ctx context.Context, format string, args ...interface{})
	// Error logs at error level
	Error(ctx context.Context, message string)
	// Errorf logs at error level with formatting
	Errorf(ctx context.Context, format string, args ...interface{})
	// Fatal logs at error level and exits
	Fatal(ctx context.Context, message string)

	// With returns a new logger with additional fields
	With(key string, value interface{}) Logger
	// WithFields returns a new logger with multiple additional fields
	WithFields(fields map[string]interface{}) Logger
	// WithError returns a new logger with error field (no-op if err is nil)
	WithError(err error) Logger
	// Without returns a new logger with the specified field removed
	Without(key string) Logger
}

var _ Logger = &logger{}

// Redacted replaces the value of sensitive fields
const Redacted = "[REDACTED]"

// DefaultRedactedKeys are the fields never written in clear. Regional cluster
// service headers carry bearer tokens.
var DefaultRedactedKeys = []string{"authorization", "token", "password", "cookie"}

type logger struct {
	slog   *slog.Logger
	fields map[string]interface{}
}

// Config holds logger configuration
type Config struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string
	// Format is the output format: "text" or "json"
	Format string
	// Output is the output destination: "stdout", "stderr", or empty (defaults to stdout).
	// Ignored if Writer is set.
	Output string
	// Writer is an optional custom io.Writer for log output, mostly for tests.
	Writer io.Writer
	// Component is the component name (e.g., "hub-clusters")
	Component string
	// Version is the component version
	Version string
	// RedactedKeys are matched case-insensitively against field names.
	// Nil means DefaultRedactedKeys.
	RedactedKeys []string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "text",
		Output:    "stdout",
		Component: "hub-clusters",
		Version:   "unknown",
	}
}

// ConfigFromEnv creates a Config from LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = strings.ToLower(format)
	}
	if output := os.Getenv("LOG_OUTPUT"); output != "" {
		cfg.Output = output
	}

	return cfg
}

// NewLogger creates a new Logger with the given configuration.
// Returns error if the level, format or output is invalid.
func NewLogger(cfg Config) (Logger, error) {
	var writer io.Writer
	if cfg.Writer != nil {
		writer = cfg.Writer
	} else {
		switch cfg.Output {
		case "stdout", "":
			writer = os.Stdout
		case "stderr":
			writer = os.Stderr
		default:
			return nil, fmt.Errorf("invalid log output %q: must be 'stdout', 'stderr', or empty", cfg.Output)
		}
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	redacted := cfg.RedactedKeys
	if redacted == nil {
		redacted = DefaultRedactedKeys
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr(redacted),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text", "":
		handler = slog.NewTextHandler(writer, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.Format)
	}

	slogLogger := slog.New(handler).With(
		"component", cfg.Component,
		"version", cfg.Version,
		"hostname", hostname(),
	)

	return &logger{
		slog:   slogLogger,
		fields: make(map[string]interface{}),
	}, nil
}

func hostname() string {
	if name, _ := os.Hostname(); name != "" {
		return name
	}
	if name := os.Getenv("POD_NAME"); name != "" {
		return name
	}
	return "unknown"
}

// ParseLevel converts a level name to a slog.Level. An empty name is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn' or 'error'", level)
	}
}

// redactAttr hides the value of any attribute whose key contains one of keys
func redactAttr(keys []string) func(groups []string, a slog.Attr) slog.Attr {
	lowered := make([]string, 0, len(keys))
	for _, k := range keys {
		lowered = append(lowered, strings.ToLower(k))
	}
	return func(_ []string, a slog.Attr) slog.Attr {
		key := strings.ToLower(a.Key)
		for _, k := range lowered {
			if strings.Contains(key, k) {
				return slog.String(a.Key, Redacted)
			}
		}
		return a
	}
}

// buildArgs merges logger fields with the fields carried by ctx. Context
// fields win on conflicts and keys are emitted in sorted order.
func (l *logger) buildArgs(ctx context.Context) []any {
	merged := make(map[string]interface{}, len(l.fields)+8)
	for k, v := range l.fields {
		merged[k] = v
	}
	if ctx != nil {
		if logFields, ok := ctx.Value(LogFieldsKey).(LogFields); ok {
			for k, v := range logFields {
				merged[k] = v
			}
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, merged[k])
	}
	return args
}

func (l *logger) log(ctx context.Context, level slog.Level, message string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.slog.Enabled(ctx, level) {
		return
	}
	l.slog.Log(ctx, level, message, l.buildArgs(ctx)...)
}

func (l *logger) Debug(ctx context.Context, message string) {
	l.log(ctx, slog.LevelDebug, message)
}

func (l *logger) Debugf(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelDebug, fmt.Sprintf(format, args...))
}

func (l *logger) Info(ctx context.Context, message string) {
	l.log(ctx, slog.LevelInfo, message)
}

func (l *logger) Infof(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (l *logger) Warn(ctx context.Context, message string) {
	l.log(ctx, slog.LevelWarn, message)
}

func (l *logger) Warnf(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelWarn, fmt.Sprintf(format, args...))
}

func (l *logger) Error(ctx context.Context, message string) {
	l.log(ctx, slog.LevelError, message)
}

func (l *logger) Errorf(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelError, fmt.Sprintf(format, args...))
}

// Fatal logs at error level and exits
func (l *logger) Fatal(ctx context.Context, message string) {
	l.log(ctx, slog.LevelError, message)
	os.Exit(1)
}

func (l *logger) derive(mutate func(fields map[string]interface{})) *logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	mutate(fields)
	return &logger{slog: l.slog, fields: fields}
}

// With returns a new logger with an additional field
func (l *logger) With(key string, value interface{}) Logger {
	return l.derive(func(f map[string]interface{}) { f[key] = value })
}

// WithFields returns a new logger with multiple additional fields
func (l *logger) WithFields(fields map[string]interface{}) Logger {
	return l.derive(func(f map[string]interface{}) {
		for k, v := range fields {
			f[k] = v
		}
	})
}

// WithError returns a new logger with the error field set.
// If err is nil, returns the same logger instance so that
//
//	log.WithError(maybeNilErr).Info(ctx, "message")
//
// is always safe. To remove an existing error field, use Without("error").
func (l *logger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.With("error", err.Error())
}

// Without returns a new logger with the specified field removed.
func (l *logger) Without(key string) Logger {
	return l.derive(func(f map[string]interface{}) { delete(f, key) })
}

// GetStackTrace returns the current stack trace as a slice of strings
func GetStackTrace(skip int) []string {
	var pcs [32]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for {
		frame, more := frames.Next()
		stack = append(stack, fmt.Sprintf("%s() %s:%d", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return stack
}
