// Package observability adapts zap, Prometheus, and OpenTelemetry to the
// logging, metrics, and tracing hooks of the core service.
package observability

import (
	"strings"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"go.uber.org/zap"
)

var _ core.Logger = (*Logger)(nil)

// Logger is a structured logger backed by a zap SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// NewLogger builds a logger for the given mode: "production" (or "prod")
// writes JSON at info level, anything else is the development console
// encoder at debug level.
func NewLogger(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// WrapZap adapts an existing zap logger.
func WrapZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{sugar: z.Sugar()}
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger { return l.sugar.Desugar() }

// With returns a child logger carrying the key/value pairs.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() { _ = l.sugar.Sync() }

func (l *Logger) Debug(msg string, keysAndValues ...any) { l.sugar.Debugw(msg, keysAndValues...) }
func (l *Logger) Info(msg string, keysAndValues ...any)  { l.sugar.Infow(msg, keysAndValues...) }
func (l *Logger) Warn(msg string, keysAndValues ...any)  { l.sugar.Warnw(msg, keysAndValues...) }
func (l *Logger) Error(msg string, keysAndValues ...any) { l.sugar.Errorw(msg, keysAndValues...) }
