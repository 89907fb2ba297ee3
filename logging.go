package gate

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Log(level zapcore.Level, msg string, fields ...zap.Field)
}

// fallbackLogger routes to the zap global when no Logger is configured.
type fallbackLogger struct{}

func (fallbackLogger) Log(level zapcore.Level, msg string, fields ...zap.Field) {
	zap.L().Log(level, msg, fields...)
}
