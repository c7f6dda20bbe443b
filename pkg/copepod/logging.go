package copepod

import (
	"sort"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger adapts a zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

func (l *zerologLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(fields).Msg(msg)
}

type zapLogger struct {
	logger *zap.Logger
}

// NewZapLogger adapts a zap.Logger. A nil logger discards everything.
func NewZapLogger(logger *zap.Logger) Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &zapLogger{logger: logger}
}

func (l *zapLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, zapFields(fields)...)
}

func zapFields(fields map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		out = append(out, zap.Any(key, fields[key]))
	}

	return out
}
