package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// defaultLevel is the level an analysis run falls back to when config.go's
// app.log_level is unset or unparseable. Risk-scoring runs are investigated
// after the fact far more often than they're watched live, so info rather
// than a quieter default.
const defaultLevel = zapcore.InfoLevel

// Logger wraps zap logger with additional functionality
type Logger struct {
	*zap.Logger
}

// NewLogger creates a new logger instance
func NewLogger(level string) (*Logger, error) {
	config := zap.NewProductionConfig()

	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = defaultLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	// Configure encoder
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: logger}, nil
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component))}
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &Logger{Logger: l.Logger.With(zapFields...)}
}

// WithAnalysis scopes a logger to a single address/chain analysis run, the
// pair every pipeline stage's log line is keyed on.
func (l *Logger) WithAnalysis(address, chain string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("address", address), zap.String("chain", chain))}
}
