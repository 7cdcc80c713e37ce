// Package logging provides the structured logger used across the server.
// It wraps slog with a JSON handler, correlation ids carried in the context
// and redaction of sensitive attribute values.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	*slog.Logger
}

// NewLogger writes JSON to stdout at the level named by levelName
// (DEBUG, INFO, WARN, ERROR). Unknown names fall back to INFO.
func NewLogger(levelName string) *Logger {
	return NewLoggerTo(os.Stdout, levelName)
}

func NewLoggerTo(w io.Writer, levelName string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(levelName),
		ReplaceAttr: sanitizeAttributes,
	})
	return &Logger{slog.New(handler)}
}

// Discard is a logger for tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, "ERROR")
}

func (l *Logger) LogWithContext(ctx context.Context, level slog.Level, msg string, args ...any) {
	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		args = append(args, "correlation_id", correlationID)
	}
	l.Log(ctx, level, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelInfo, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelWarn, msg, args...)
}

func (l *Logger) Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.LogWithContext(ctx, slog.LevelError, msg, args...)
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelDebug, msg, args...)
}

type correlationIDKey struct{}

// WithCorrelationID stores id in ctx, generating one when id is empty.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = GenerateCorrelationID()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

func GenerateCorrelationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func ParseLevel(levelName string) slog.Level {
	switch strings.ToUpper(levelName) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var sensitiveKeys = []string{
	"password", "secret", "token", "authorization", "cookie", "hash_key", "block_key",
}

func sanitizeAttributes(groups []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(key, sensitive) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	return a
}
