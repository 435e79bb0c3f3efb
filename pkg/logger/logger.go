// Package logger is the gateway's structured logger, a thin layer over logrus
// that carries request and payment reference fields.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

type contextKey string

const (
	RequestIDKey   contextKey = "request_id"
	ReferenceIDKey contextKey = "reference_id"
)

type Config struct {
	Level      LogLevel `json:"level"`
	Format     string   `json:"format"` // json, text
	Output     string   `json:"output"` // stdout, stderr, discard, file path
	TimeFormat string   `json:"time_format"`
	Caller     bool     `json:"caller"`
	AppName    string   `json:"app_name"`
	Version    string   `json:"version"`
}

// Logger is immutable; the With* methods return derived loggers that share
// the parent's output and level.
type Logger struct {
	entry *logrus.Entry
}

func NewLogger(config *Config) (*Logger, error) {
	base := logrus.New()
	base.SetLevel(parseLevel(config.Level))
	base.SetReportCaller(config.Caller)

	switch config.Format {
	case "json":
		base.SetFormatter(&CustomJSONFormatter{
			TimestampFormat: config.TimeFormat,
			AppName:         config.AppName,
			Version:         config.Version,
		})
	default:
		base.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: config.TimeFormat,
			FullTimestamp:   true,
		})
	}

	out, err := openOutput(config.Output)
	if err != nil {
		return nil, err
	}
	base.SetOutput(out)

	return &Logger{entry: logrus.NewEntry(base)}, nil
}

// Discard returns a logger that drops everything. Library types fall back to
// it when the caller does not supply one.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{entry: logrus.NewEntry(base)}
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	}
	return os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func parseLevel(level LogLevel) logrus.Level {
	parsed, err := logrus.ParseLevel(string(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

// WithContext copies the request and payment reference ids stored on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := logrus.Fields{}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields["request_id"] = requestID
	}
	if referenceID, ok := ctx.Value(ReferenceIDKey).(string); ok && referenceID != "" {
		fields["reference_id"] = referenceID
	}
	if len(fields) == 0 {
		return l
	}
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{entry: l.entry.WithError(err)}
}

func (l *Logger) WithReferenceID(referenceID string) *Logger {
	return l.WithField("reference_id", referenceID)
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

func (l *Logger) Debug(msg string)                          { l.entry.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(msg string)                           { l.entry.Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(msg string)                           { l.entry.Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(msg string)                          { l.entry.Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

// Printf logs at info level so the logger can stand in for cron's
// Printf-style logger.
func (l *Logger) Printf(format string, args ...interface{}) { l.entry.Infof(format, args...) }

// LogPaymentEvent records a change in a payment's lifecycle.
func (l *Logger) LogPaymentEvent(referenceID, event, amount, currency string) {
	l.WithFields(map[string]interface{}{
		"reference_id": referenceID,
		"event":        event,
		"amount":       amount,
		"currency":     currency,
		"type":         "payment_event",
	}).Info("payment event")
}

// LogGatewayCall records one round trip to the collections gateway.
func (l *Logger) LogGatewayCall(operation string, statusCode int, duration time.Duration) {
	l.WithFields(map[string]interface{}{
		"operation":   operation,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
		"type":        "gateway_call",
	}).Debug("gateway call completed")
}

func (l *Logger) LogAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	l.WithFields(map[string]interface{}{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
		"type":        "api_request",
	}).Info("api request")
}

func (l *Logger) SetOutput(output io.Writer) {
	l.entry.Logger.SetOutput(output)
}

func (l *Logger) SetLevel(level LogLevel) {
	l.entry.Logger.SetLevel(parseLevel(level))
}
