package orchestrator

import "go.uber.org/zap"

// Logger is the logging seam the core talks through. Callers wire a
// concrete implementation in at construction time; the core itself
// never imports a logging backend directly.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything. It is the default when no Logger is
// supplied to NewSession.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

// ZapLogger adapts *zap.SugaredLogger to Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps an existing zap logger. Pass zap.NewProduction()
// or zap.NewDevelopment() from the caller (cmd/agent).
func NewZapLogger(z *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: z.Sugar()}
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, args...) }
