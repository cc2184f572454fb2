package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// slog has no fatal level; it sits above error.
const levelFatal = slog.LevelError + 4

// String returns string representation of log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		return levelFatal
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a level name from config or flags to a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Fields represents structured log fields
type Fields map[string]interface{}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	runIDKey     contextKey = "run_id"
)

// WithRequestID attaches an HTTP request id that every log line in ctx will carry
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithRunID attaches an ingestion run id
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunID returns the ingestion run id stored in ctx, if any
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// Format selects the handler: machine-readable JSON or colored console output
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// StructuredLogger provides structured logging with context
type StructuredLogger struct {
	mu       sync.Mutex
	level    *slog.LevelVar
	format   Format
	output   io.Writer
	service  string
	version  string
	hostname string
	handler  slog.Handler
	exit     func(code int)
}

// NewStructuredLogger creates a JSON logger writing to stdout
func NewStructuredLogger(service, version string, level LogLevel) *StructuredLogger {
	return newLogger(service, version, level, FormatJSON)
}

// NewConsoleLogger creates a human-oriented colored logger for local runs
func NewConsoleLogger(service, version string, level LogLevel) *StructuredLogger {
	return newLogger(service, version, level, FormatConsole)
}

// New picks the handler from a format name, falling back to JSON
func New(service, version string, level LogLevel, format string) *StructuredLogger {
	if Format(strings.ToLower(format)) == FormatConsole {
		return NewConsoleLogger(service, version, level)
	}
	return NewStructuredLogger(service, version, level)
}

func newLogger(service, version string, level LogLevel, format Format) *StructuredLogger {
	hostname, _ := os.Hostname()

	l := &StructuredLogger{
		level:    new(slog.LevelVar),
		format:   format,
		output:   os.Stdout,
		service:  service,
		version:  version,
		hostname: hostname,
		exit:     os.Exit,
	}
	l.level.Set(level.slogLevel())
	l.rebuild()
	return l
}

// rebuild recreates the slog handler for the current output; callers hold mu or own l exclusively
func (l *StructuredLogger) rebuild() {
	var h slog.Handler
	if l.format == FormatConsole {
		h = tint.NewHandler(l.output, &tint.Options{
			Level:       l.level,
			TimeFormat:  time.Kitchen,
			ReplaceAttr: replaceLevelName,
		})
	} else {
		h = slog.NewJSONHandler(l.output, &slog.HandlerOptions{
			Level:       l.level,
			ReplaceAttr: replaceLevelName,
		})
	}

	l.handler = h.WithAttrs([]slog.Attr{
		slog.String("service", l.service),
		slog.String("version", l.version),
		slog.String("hostname", l.hostname),
	})
}

func replaceLevelName(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= levelFatal {
			a.Value = slog.StringValue("FATAL")
		}
	}
	return a
}

// SetOutput sets the output destination for logs
func (l *StructuredLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// SetLevel sets the minimum log level
func (l *StructuredLogger) SetLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

// SetExitFunc replaces os.Exit for Fatal
func (l *StructuredLogger) SetExitFunc(fn func(code int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exit = fn
}

// Slog exposes the underlying handler for libraries that want a *slog.Logger
func (l *StructuredLogger) Slog() *slog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slog.New(l.handler)
}

// Debug logs a debug message with structured fields
func (l *StructuredLogger) Debug(ctx context.Context, message string, fields Fields) {
	l.log(ctx, 1, DebugLevel, message, fields, nil)
}

// Info logs an info message with structured fields
func (l *StructuredLogger) Info(ctx context.Context, message string, fields Fields) {
	l.log(ctx, 1, InfoLevel, message, fields, nil)
}

// Warn logs a warning message with structured fields
func (l *StructuredLogger) Warn(ctx context.Context, message string, fields Fields) {
	l.log(ctx, 1, WarnLevel, message, fields, nil)
}

// Error logs an error message with structured fields and error details
func (l *StructuredLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, 1, ErrorLevel, message, fields, err)
}

// Fatal logs a fatal message and exits the program
func (l *StructuredLogger) Fatal(ctx context.Context, message string, fields Fields, err error) {
	l.fatal(ctx, message, fields, err)
}

// fatal is the single path to exit; depth 2 skips fatal and the exported Fatal
func (l *StructuredLogger) fatal(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, 2, FatalLevel, message, fields, err)

	l.mu.Lock()
	exit := l.exit
	l.mu.Unlock()
	exit(1)
}

// log writes one entry. depth is the number of logger frames between log and
// the caller that should be reported as the source.
func (l *StructuredLogger) log(ctx context.Context, depth int, level LogLevel, message string, fields Fields, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()

	lvl := level.slogLevel()
	if !h.Enabled(ctx, lvl) {
		return
	}

	var (
		pc     uintptr
		caller runtime.Frame
	)
	if level >= ErrorLevel {
		var pcs [8]uintptr
		// skip runtime.Callers and log itself
		if n := runtime.Callers(2+depth, pcs[:]); n > 0 {
			pc = pcs[0]
			caller, _ = runtime.CallersFrames(pcs[:n]).Next()
		}
	}

	record := slog.NewRecord(time.Now().UTC(), lvl, message, pc)

	if id := RequestID(ctx); id != "" {
		record.AddAttrs(slog.String("request_id", id))
	}
	if id := RunID(ctx); id != "" {
		record.AddAttrs(slog.String("run_id", id))
	}

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		attrs := make([]any, 0, len(keys))
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, fields[k]))
		}
		record.AddAttrs(slog.Group("fields", attrs...))
	}

	if caller.Function != "" {
		record.AddAttrs(
			slog.String("file", caller.File),
			slog.Int("line", caller.Line),
			slog.String("function", caller.Function),
		)
	}

	if err != nil {
		record.AddAttrs(slog.String("error", err.Error()))
		if level == FatalLevel {
			record.AddAttrs(slog.String("stack_trace", captureStackTrace()))
		}
	}

	if handleErr := h.Handle(ctx, record); handleErr != nil {
		fmt.Fprintf(os.Stderr, "%s [%s] %s: %v (log write failed: %v)\n",
			record.Time.Format(time.RFC3339), level, message, fields, handleErr)
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// WithFields creates a new logger with additional fields
func (l *StructuredLogger) WithFields(fields Fields) *ContextLogger {
	return &ContextLogger{
		logger: l,
		fields: fields,
	}
}

// ContextLogger wraps StructuredLogger with additional context fields
type ContextLogger struct {
	logger *StructuredLogger
	fields Fields
}

// Debug logs a debug message with context fields
func (c *ContextLogger) Debug(ctx context.Context, message string, fields Fields) {
	c.logger.log(ctx, 1, DebugLevel, message, c.mergeFields(fields), nil)
}

// Info logs an info message with context fields
func (c *ContextLogger) Info(ctx context.Context, message string, fields Fields) {
	c.logger.log(ctx, 1, InfoLevel, message, c.mergeFields(fields), nil)
}

// Warn logs a warning message with context fields
func (c *ContextLogger) Warn(ctx context.Context, message string, fields Fields) {
	c.logger.log(ctx, 1, WarnLevel, message, c.mergeFields(fields), nil)
}

// Error logs an error message with context fields
func (c *ContextLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	c.logger.log(ctx, 1, ErrorLevel, message, c.mergeFields(fields), err)
}

// Fatal logs a fatal message with context fields
func (c *ContextLogger) Fatal(ctx context.Context, message string, fields Fields, err error) {
	c.logger.fatal(ctx, message, c.mergeFields(fields), err)
}

// mergeFields merges context fields with provided fields
func (c *ContextLogger) mergeFields(fields Fields) Fields {
	merged := make(Fields, len(c.fields)+len(fields))

	for k, v := range c.fields {
		merged[k] = v
	}

	// Override with provided fields
	for k, v := range fields {
		merged[k] = v
	}

	return merged
}
