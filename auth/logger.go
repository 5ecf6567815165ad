package auth

import (
	"log"

	"go.uber.org/zap"
)

// Logger is an interface for logging during authentication.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// defaultLogger wraps the standard log package.
type defaultLogger struct{}

func (l *defaultLogger) Info(msg string, args ...any) {
	log.Printf("INFO: "+msg, args...)
}

func (l *defaultLogger) Warn(msg string, args ...any) {
	log.Printf("WARN: "+msg, args...)
}

func (l *defaultLogger) Debug(msg string, args ...any) {
	log.Printf("DEBUG: "+msg, args...)
}

// zapLogger adapts a zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger wraps a SugaredLogger as a Logger.
func NewZapLogger(s *zap.SugaredLogger) Logger {
	return &zapLogger{s: s}
}

func (l *zapLogger) Info(msg string, args ...any) {
	l.s.Infof(msg, args...)
}

func (l *zapLogger) Warn(msg string, args ...any) {
	l.s.Warnf(msg, args...)
}

func (l *zapLogger) Debug(msg string, args ...any) {
	l.s.Debugf(msg, args...)
}
