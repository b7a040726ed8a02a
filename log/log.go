// Package log provides the process-wide logging facade used by every layer
// of the toolkit. It wraps a swappable zap logger so host applications can
// install their own sink (see engine.SetLogSink).
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_mu     sync.RWMutex
	_logger = zap.Must(zap.NewProduction())
)

// SetLogger replaces the active logger. Passing nil restores zap's
// production logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.Must(zap.NewProduction())
	}
	_mu.Lock()
	_logger = l
	_mu.Unlock()
}

// Logger returns the active logger.
func Logger() *zap.Logger {
	_mu.RLock()
	defer _mu.RUnlock()
	return _logger
}

// SetLevel installs a production logger clamped to the given level.
func SetLevel(level zapcore.Level) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	SetLogger(zap.Must(cfg.Build()))
}

func logf(level zapcore.Level, format string, args ...any) {
	l := Logger()
	if ce := l.Check(level, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// Debugf logs at debug level.
func Debugf(format string, args ...any) {
	logf(zapcore.DebugLevel, format, args...)
}

// Infof logs at info level.
func Infof(format string, args ...any) {
	logf(zapcore.InfoLevel, format, args...)
}

// Warnf logs at warn level.
func Warnf(format string, args ...any) {
	logf(zapcore.WarnLevel, format, args...)
}

// Errorf logs at error level.
func Errorf(format string, args ...any) {
	logf(zapcore.ErrorLevel, format, args...)
}
